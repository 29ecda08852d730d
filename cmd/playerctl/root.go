package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/danmuck/playernet/internal/logging"
	"github.com/spf13/cobra"
)

type cli struct {
	targetsPath string
	targetName  string
	gameAddr    string
	adminAddr   string
	username    string
	token       string

	target target
	admin  *adminClient
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "playerctl",
		Short:         "Operate a playerd server from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime()
			return c.resolve()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.targetsPath, "targets", defaultTargetsPath, "targets file")
	flags.StringVarP(&c.targetName, "target", "t", "", "target name (defaults to the file's default)")
	flags.StringVar(&c.gameAddr, "game-addr", "", "override the target game address")
	flags.StringVar(&c.adminAddr, "admin-addr", "", "override the target admin API address")
	flags.StringVarP(&c.username, "username", "u", "", "override the target username")
	flags.StringVar(&c.token, "token", "", "override the target admin token")

	root.AddCommand(
		c.targetsCmd(),
		c.statusCmd(),
		c.sessionsCmd(),
		c.kickCmd(),
		c.sayCmd(),
		c.broadcastCmd(),
		c.observersCmd(),
		c.chatCmd(),
	)
	return root
}

func (c *cli) resolve() error {
	file, err := loadTargets(c.targetsPath)
	if err != nil {
		return err
	}
	t, err := file.resolve(c.targetName)
	if err != nil {
		return err
	}
	if v := strings.TrimSpace(c.gameAddr); v != "" {
		t.GameAddr = v
	}
	if v := strings.TrimSpace(c.adminAddr); v != "" {
		t.AdminAddr = strings.TrimRight(v, "/")
		if !strings.Contains(t.AdminAddr, "://") {
			t.AdminAddr = "http://" + t.AdminAddr
		}
	}
	if v := strings.TrimSpace(c.username); v != "" {
		t.Username = v
	}
	if v := strings.TrimSpace(c.token); v != "" {
		t.AdminToken = v
	}
	c.target = t
	c.admin = newAdminClient(t.AdminAddr, t.AdminToken)
	return nil
}

func (c *cli) targetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List configured targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := loadTargets(c.targetsPath)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tGAME\tADMIN\tUSER")
			for _, name := range file.names() {
				t, _ := file.resolve(name)
				marker := ""
				if name == file.Default {
					marker = " *"
				}
				fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", name, marker, t.GameAddr, t.AdminAddr, t.Username)
			}
			return w.Flush()
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.admin.Health()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (version %s, up %s)\n", h["server"], h["status"], h["version"], h["uptime"])
			return nil
		},
	}
}

func (c *cli) sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List connected sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.admin.Sessions()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tNAME\tLOGGED IN\tVIEW\tPOSITION")
			for _, s := range list {
				fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%.1f,%.1f,%.1f\n",
					s.ID, s.Name, s.LoggedIn, s.ViewDistance, s.Position.X, s.Position.Y, s.Position.Z)
			}
			return w.Flush()
		},
	}
}

func (c *cli) kickCmd() *cobra.Command {
	var reason string
	var silent bool
	cmd := &cobra.Command{
		Use:   "kick <session>",
		Short: "Disconnect a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.admin.Disconnect(args[0], reason, !silent); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "disconnected %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "reason shown to the player")
	cmd.Flags().BoolVar(&silent, "silent", false, "close without sending a disconnect notice")
	return cmd
}

func (c *cli) sayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "say <session> <message...>",
		Short: "Send a system message to one session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := c.admin.Message(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("message to %s was not delivered", args[0])
			}
			return nil
		},
	}
}

func (c *cli) broadcastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast <message...>",
		Short: "Send a system message to every online player",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.admin.Broadcast(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delivered to %d players\n", n)
			return nil
		},
	}
}

func (c *cli) observersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "observers",
		Short: "List interception observers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := c.admin.Observers()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <name>",
		Short: "Unregister an observer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.admin.RemoveObserver(args[0])
		},
	})
	return cmd
}
