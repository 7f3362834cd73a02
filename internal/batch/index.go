// SPDX-License-Identifier: MPL-2.0

package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dbcgen/dbcgen/internal/naming"
)

// Declarations returns one module declaration per identifier, in order,
// joined by newlines.
func Declarations(modules []naming.ModuleIdentifier) string {
	lines := make([]string, len(modules))
	for i, m := range modules {
		lines[i] = fmt.Sprintf("pub mod %s;", m)
	}
	return strings.Join(lines, "\n")
}

// WriteIndex renders the module index for the generated modules of res into
// the IndexName file. Without an IndexName it writes nothing.
func (p *Processor) WriteIndex(ctx context.Context, res Result) error {
	dest := p.indexPath()
	if dest == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out, err := createPending(dest)
	if err != nil {
		return err
	}

	if err := p.engine.GenerateIndex(p.base.WithoutUnit(), Declarations(res.Modules), out); err != nil {
		return errors.Join(&IndexRenderError{Path: dest, Err: err}, out.Discard())
	}
	if err := out.Commit(); err != nil {
		return err
	}

	p.logger.Debug("wrote module index", "dest", dest, "modules", len(res.Modules))
	return nil
}
