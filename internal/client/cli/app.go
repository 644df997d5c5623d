package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/dmitrijs2005/tgotp/internal/base32x"
	"github.com/dmitrijs2005/tgotp/internal/client/config"
	"github.com/dmitrijs2005/tgotp/internal/common"
	"github.com/dmitrijs2005/tgotp/internal/totp"
)

type App struct {
	config *config.Config
	in     *bufio.Reader
	inFd   int
	out    io.Writer
	now    func() time.Time
	wait   func(ctx context.Context, d time.Duration) error
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		in:     bufio.NewReader(os.Stdin),
		inFd:   int(os.Stdin.Fd()),
		out:    os.Stdout,
		now:    time.Now,
		wait:   sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run prints one code, or with Watch a code per window until ctx is done or
// Count codes were printed. With NewAccount set it provisions instead.
func (a *App) Run(ctx context.Context) error {
	if a.config.NewAccount != "" {
		return a.provision()
	}

	secret, name, err := a.resolveSecret()
	if err != nil {
		return err
	}

	for printed := 0; ; {
		w := totp.WindowAt(a.now())
		code, err := w.Code(secret)
		if err != nil {
			return err
		}
		a.printCode(name, code, w.Remaining)
		printed++

		if !a.config.Watch || (a.config.Count > 0 && printed >= a.config.Count) {
			return nil
		}
		if err := a.wait(ctx, w.Start.Add(totp.Period*time.Second).Sub(a.now())); err != nil {
			return nil
		}
	}
}

// provision prints a fresh secret, its otpauth URI and the URI as a terminal
// QR code ready to be scanned by an authenticator app.
func (a *App) provision() error {
	secret, uri, err := totp.NewSecret(a.config.Issuer, a.config.NewAccount)
	if err != nil {
		return err
	}
	qr, err := qrcode.New(uri, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("error rendering qr: %w", err)
	}
	fmt.Fprintf(a.out, "secret: %s\nuri:    %s\n\n%s", secret, uri, qr.ToSmallString(false))
	return nil
}

func (a *App) printCode(name, code string, remaining int) {
	if name != "" {
		fmt.Fprintf(a.out, "%s  %s %s  (%ds left)\n", name, code[:3], code[3:], remaining)
		return
	}
	fmt.Fprintf(a.out, "%s %s  (%ds left)\n", code[:3], code[3:], remaining)
}

// resolveSecret returns a validated base32 secret and a display name.
func (a *App) resolveSecret() (string, string, error) {
	if a.config.URI != "" {
		p, err := totp.ParseURI(a.config.URI)
		if err != nil {
			return "", "", err
		}
		name := p.Label
		if p.Service != "" {
			name = p.Service + ": " + p.Label
		}
		return p.Secret, name, nil
	}

	var raw string
	if isTerminal(a.inFd) {
		b, err := GetSecret(a.inFd, a.out)
		if err != nil {
			return "", "", err
		}
		raw = string(b)
		common.WipeByteArray(b)
	} else {
		line, err := GetSimpleText(a.in, "Enter base32 secret:", a.out)
		if err != nil {
			return "", "", err
		}
		raw = line
	}

	secret := base32x.Normalize(raw)
	if err := totp.ValidateSecret(secret); err != nil {
		return "", "", err
	}
	return secret, "", nil
}
