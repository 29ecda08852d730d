package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danmuck/playernet/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

func TestStaticTokenValidate(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name    string
		stored  string
		input   string
		wantErr error
	}{
		{name: "empty token denied", stored: "", input: "abc", wantErr: ErrUnauthorized},
		{name: "mismatched token denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "matching token accepted", stored: "abc", input: "abc", wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := (StaticToken{Token: tc.stored}).Validate(tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"":             "",
	}
	for header, want := range cases {
		got, ok := BearerToken(header)
		if got != want || ok != (want != "") {
			t.Fatalf("%q: got %q %v", header, got, ok)
		}
	}
}

func TestMiddleware(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)

	validator := StaticToken{Token: "ok"}
	r := gin.New()
	r.POST("/guarded", Middleware(validator), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/open", Middleware(nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	send := func(path, header string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("/guarded", ""); code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", code)
	}
	if code := send("/guarded", "Bearer bad"); code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", code)
	}
	if code := send("/guarded", "Bearer ok"); code != http.StatusNoContent {
		t.Fatalf("good token: %d", code)
	}
	if code := send("/open", ""); code != http.StatusNoContent {
		t.Fatalf("nil validator should pass: %d", code)
	}
}
