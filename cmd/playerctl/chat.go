package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/danmuck/playernet/internal/network"
	"github.com/danmuck/playernet/internal/protocol/packet"
	"github.com/spf13/cobra"
)

func (c *cli) chatCmd() *cobra.Command {
	var message string
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join the game as a player and chat from the terminal",
		Long: `Connects to the target's game address, logs in and prints incoming text.
Lines read from stdin are sent as chat; "/quit" leaves. With --message a
single line is sent and incoming text is printed for --wait.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			conn, err := network.Dial(ctx, c.target.GameAddr, network.DefaultDialConfig())
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := conn.Send(&packet.Login{
				Protocol: packet.CurrentProtocol,
				Username: c.target.Username,
				ClientID: "playerctl-" + c.target.Username,
			}); err != nil {
				return fmt.Errorf("login: %w", err)
			}

			done := make(chan error, 1)
			go func() { done <- printIncoming(cmd.OutOrStdout(), conn) }()

			if message != "" {
				if err := conn.Send(&packet.Text{Type: packet.TextTypeChat, Message: message}); err != nil {
					return err
				}
				select {
				case err := <-done:
					return err
				case <-time.After(wait):
					return nil
				}
			}

			lines := make(chan string)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					lines <- scanner.Text()
				}
			}()
			for {
				select {
				case err := <-done:
					return err
				case <-ctx.Done():
					return nil
				case line, ok := <-lines:
					if !ok || strings.TrimSpace(line) == "/quit" {
						return nil
					}
					if strings.TrimSpace(line) == "" {
						continue
					}
					if err := conn.Send(&packet.Text{Type: packet.TextTypeChat, Message: line}); err != nil {
						return err
					}
				}
			}
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "send one chat line and exit")
	cmd.Flags().DurationVar(&wait, "wait", time.Second, "how long to print replies after --message")
	return cmd
}

// printIncoming writes text and disconnect messages until the connection
// ends. A server disconnect is reported as an error carrying its reason.
func printIncoming(out io.Writer, conn *network.Client) error {
	for {
		env, err := conn.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if env == nil {
				return err
			}
			continue
		}
		switch body := env.Body.(type) {
		case *packet.Text:
			fmt.Fprintln(out, formatText(body))
		case *packet.Disconnect:
			if body.Message == "" {
				return errors.New("disconnected by server")
			}
			return fmt.Errorf("disconnected: %s", body.Message)
		}
	}
}

func formatText(t *packet.Text) string {
	switch t.Type {
	case packet.TextTypeChat, packet.TextTypeWhisper:
		return fmt.Sprintf("<%s> %s", t.Source, t.Message)
	case packet.TextTypeSystem, packet.TextTypeAnnouncement:
		return "* " + t.Message
	default:
		return t.Message
	}
}
