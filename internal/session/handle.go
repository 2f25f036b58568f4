package session

import (
	"context"
	"strings"

	"github.com/rs/xid"

	"github.com/livme/livme/internal/validate"
)

const handleAttempts = 3

// suggestHandle turns an external login into something that passes the
// handle rules: disallowed characters become underscores, short results are
// padded and long ones cut.
func suggestHandle(login string) string {
	var b strings.Builder
	for _, r := range login {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	h := b.String()
	for len(h) < validate.MinHandleLength {
		h += "_"
	}
	if len(h) > validate.MaxHandleLength {
		h = h[:validate.MaxHandleLength]
	}
	return h
}

// freeHandle finds an unused handle based on login, adding a short random
// suffix when the plain form is taken.
func (p *Provider) freeHandle(ctx context.Context, login string) (string, error) {
	base := suggestHandle(login)
	candidate := base

	for i := 0; i < handleAttempts; i++ {
		available, err := p.deps.Gateway.CheckHandleAvailable(ctx, candidate)
		if err != nil {
			return "", err
		}
		if available {
			return candidate, nil
		}

		suffix := "_" + xid.New().String()[14:]
		if len(base)+len(suffix) > validate.MaxHandleLength {
			candidate = base[:validate.MaxHandleLength-len(suffix)] + suffix
		} else {
			candidate = base + suffix
		}
	}

	return "", handleTaken(base)
}
