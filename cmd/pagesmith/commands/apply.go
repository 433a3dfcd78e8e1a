package commands

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/reducer"
	"git.home.luguber.info/inful/pagesmith/internal/store"
)

// ApplyCmd runs a stream of actions through a store session. Each non-empty
// line of the input is one JSON action; lines starting with '#' are comments.
type ApplyCmd struct {
	File   string `arg:"" optional:"" default:"-" help:"JSON-lines action file ('-' reads stdin)"`
	DryRun bool   `name:"dry-run" help:"Apply without saving the result"`
}

func (a *ApplyCmd) Run(g *Global) error {
	ctx := context.Background()
	in, closeIn, err := openInput(a.File)
	if err != nil {
		return err
	}
	defer closeIn()

	var st *store.Store
	if a.DryRun {
		s, err := loadStored(ctx, g)
		if err != nil {
			return err
		}
		defer func() { _ = s.kv.Close() }()
		st = s.store
	} else {
		s, err := openSession(ctx, g, nil)
		if err != nil {
			return err
		}
		defer s.Close(ctx)
		st = s.store
	}

	res, err := applyActions(st, in)
	if err != nil {
		return err
	}
	past, future := st.HistoryDepth()
	printf(g, "applied %d actions (%d changed the project); history %d/%d\n", res.applied, res.changed, past, future)
	return nil
}

type applyResult struct {
	applied int
	changed int
}

func applyActions(st *store.Store, in io.Reader) (applyResult, error) {
	var res applyResult
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 32*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		action, err := reducer.DecodeAction([]byte(raw))
		if err != nil {
			if classified, ok := errors.AsClassified(err); ok {
				return res, classified.WithContext("line", line)
			}
			return res, err
		}
		res.applied++
		if st.Dispatch(action) {
			res.changed++
		}
	}
	if err := scanner.Err(); err != nil {
		return res, errors.WrapError(err, errors.CategoryFileSystem, "read actions").Build()
	}
	return res, nil
}

func openInput(name string) (io.Reader, func(), error) {
	if name == "" || name == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, errors.WrapError(err, errors.CategoryFileSystem, "open input").
			WithContext("path", name).
			Build()
	}
	return f, func() { _ = f.Close() }, nil
}
