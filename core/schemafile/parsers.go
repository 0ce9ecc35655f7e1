package schemafile

import (
	"bufio"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"files-kraken/core/blueprint"
	"files-kraken/core/utils"

	"github.com/spf13/afero"
)

// Parsers maps parser names used in schema files to implementations.
type Parsers map[string]blueprint.Parser

var errNoPath = errors.New("parser needs a file path")

// pathArg returns the file a parser works on: the first argument, or the first item of a list.
func pathArg(args []blueprint.Value) (string, error) {
	if len(args) == 0 || args[0].IsEmpty() {
		return "", errNoPath
	}
	v := args[0]
	if items := v.Items(); len(items) > 0 {
		return items[0], nil
	}
	if s := v.Str(); s != "" {
		return s, nil
	}
	if d := v.Data(); d != nil {
		return utils.ToString(d), nil
	}
	return "", errNoPath
}

// DefaultParsers returns the built-in parsers reading from fs.
func DefaultParsers(fs afero.Fs) Parsers {
	read := func(args []blueprint.Value) (string, error) {
		p, err := pathArg(args)
		if err != nil {
			return "", err
		}
		data, err := afero.ReadFile(fs, p)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	return Parsers{
		"file_content": blueprint.ParserFunc(func(args ...blueprint.Value) (any, error) {
			s, err := read(args)
			if err != nil {
				return nil, err
			}
			return strings.TrimSpace(s), nil
		}),
		"file_number": blueprint.ParserFunc(func(args ...blueprint.Value) (any, error) {
			s, err := read(args)
			if err != nil {
				return nil, err
			}
			n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("not a number: %w", err)
			}
			return n, nil
		}),
		"file_mtime": blueprint.ParserFunc(func(args ...blueprint.Value) (any, error) {
			p, err := pathArg(args)
			if err != nil {
				return nil, err
			}
			info, err := fs.Stat(p)
			if err != nil {
				return nil, err
			}
			return info.ModTime().UTC().Format(time.RFC3339), nil
		}),
		"file_size": blueprint.ParserFunc(func(args ...blueprint.Value) (any, error) {
			p, err := pathArg(args)
			if err != nil {
				return nil, err
			}
			info, err := fs.Stat(p)
			if err != nil {
				return nil, err
			}
			return float64(info.Size()), nil
		}),
		"first_line": blueprint.ParserFunc(func(args ...blueprint.Value) (any, error) {
			p, err := pathArg(args)
			if err != nil {
				return nil, err
			}
			f, err := fs.Open(p)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			sc := bufio.NewScanner(f)
			if sc.Scan() {
				return strings.TrimSpace(sc.Text()), nil
			}
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, nil
		}),
		"basename": blueprint.ParserFunc(func(args ...blueprint.Value) (any, error) {
			p, err := pathArg(args)
			if err != nil {
				return nil, err
			}
			return filepath.Base(p), nil
		}),
	}
}
