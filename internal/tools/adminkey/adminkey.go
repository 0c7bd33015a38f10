// Package adminkey generates a super-admin API key export line.
package adminkey

import (
	"errors"
	"fmt"
	"io"

	"github.com/clinarc/ediary/internal/platform/token"
)

// Run generates an opaque key and writes the export line to out.
func Run(out io.Writer) error {
	if out == nil {
		return errors.New("output is required")
	}
	key, err := token.NewKey()
	if err != nil {
		return fmt.Errorf("generate admin key: %w", err)
	}
	_, err = fmt.Fprintf(out, "EDIARY_ADMIN_API_KEY=%s\n", key)
	return err
}
