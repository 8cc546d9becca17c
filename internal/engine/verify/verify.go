// Package verify runs integrity checks on downloaded archives.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// headerSize is enough for every archive signature, including tar's ustar at 257
const headerSize = 512

// Archive families, named after the extension filetype reports
const (
	FamilyZip   = "zip"
	Family7z    = "7z"
	FamilyRar   = "rar"
	FamilyTar   = "tar"
	FamilyGzip  = "gz"
	FamilyBzip2 = "bz2"
	FamilyXz    = "xz"
)

// Longest suffixes first so .tar.gz wins over .gz
var suffixes = []struct {
	suffix string
	family string
}{
	{".tar.gz", FamilyGzip},
	{".tar.bz2", FamilyBzip2},
	{".tar.xz", FamilyXz},
	{".tgz", FamilyGzip},
	{".tbz2", FamilyBzip2},
	{".txz", FamilyXz},
	{".zip", FamilyZip},
	{".7z", Family7z},
	{".rar", FamilyRar},
	{".tar", FamilyTar},
	{".gz", FamilyGzip},
	{".bz2", FamilyBzip2},
	{".xz", FamilyXz},
}

// Family returns the archive family for a file name, or "" if it is not a checkable archive
func Family(name string) string {
	lower := strings.ToLower(filepath.Base(name))
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.family
		}
	}
	return ""
}

// IsArchive reports whether name has a checkable archive suffix
func IsArchive(name string) bool {
	return Family(name) != ""
}

// Result is the outcome of one integrity check
type Result struct {
	OK         bool
	Tool       string
	Diagnostic string
}

// Verifier checks one local file
type Verifier interface {
	Verify(ctx context.Context, path string) (Result, error)
}

// tester is one command line integrity check
type tester struct {
	binaries []string // Tried in order
	args     []string // Placed before the file path
}

var testers = map[string][]tester{
	FamilyZip:   {{binaries: []string{"unzip"}, args: []string{"-tq"}}, {binaries: []string{"7z", "7za", "7zz"}, args: []string{"t", "-bd"}}},
	Family7z:    {{binaries: []string{"7z", "7za", "7zz"}, args: []string{"t", "-bd"}}},
	FamilyRar:   {{binaries: []string{"unrar"}, args: []string{"t", "-idq"}}, {binaries: []string{"7z", "7zz"}, args: []string{"t", "-bd"}}},
	FamilyTar:   {{binaries: []string{"tar"}, args: []string{"-tf"}}},
	FamilyGzip:  {{binaries: []string{"gzip"}, args: []string{"-t"}}},
	FamilyBzip2: {{binaries: []string{"bzip2"}, args: []string{"-t"}}},
	FamilyXz:    {{binaries: []string{"xz"}, args: []string{"-t"}}},
}

// CLIVerifier sniffs the archive header and then runs the first installed tester
type CLIVerifier struct {
	lookPath func(string) (string, error)
}

// NewCLIVerifier returns a verifier that finds testers on PATH
func NewCLIVerifier() *CLIVerifier {
	return &CLIVerifier{lookPath: exec.LookPath}
}

// Tool is an installed integrity tester
type Tool struct {
	Family string
	Path   string
	Args   []string
}

// Command renders the tester invocation for a path
func (t Tool) Command(path string) []string {
	return append(append([]string{t.Path}, t.Args...), path)
}

// ToolFor returns the tester that would be used for a family
func (v *CLIVerifier) ToolFor(family string) (Tool, bool) {
	for _, tst := range testers[family] {
		for _, bin := range tst.binaries {
			if p, err := v.lookPath(bin); err == nil {
				return Tool{Family: family, Path: p, Args: tst.args}, true
			}
		}
	}
	return Tool{}, false
}

// Families lists the archive families in a stable order
func Families() []string {
	return []string{FamilyZip, Family7z, FamilyRar, FamilyTar, FamilyGzip, FamilyBzip2, FamilyXz}
}

// Verify implements Verifier. Non-archive names always pass.
// An error is returned only when the file cannot be inspected at all.
func (v *CLIVerifier) Verify(ctx context.Context, path string) (Result, error) {
	family := Family(path)
	if family == "" {
		return Result{OK: true}, nil
	}

	res, err := sniff(path, family)
	if err != nil || !res.OK {
		return res, err
	}

	tool, ok := v.ToolFor(family)
	if !ok {
		// Header check is all we can do
		return res, nil
	}

	argv := tool.Command(path)
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	res = Result{OK: err == nil, Tool: filepath.Base(tool.Path), Diagnostic: strings.TrimSpace(string(out))}
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, fmt.Errorf("running %s: %w", res.Tool, err)
		}
	}
	return res, nil
}

// sniff compares the file's magic bytes with the family its name claims
func sniff(path, family string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	header := make([]byte, headerSize)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Result{}, err
	}
	header = header[:n]

	if n == 0 {
		return Result{Tool: "magic", Diagnostic: "file is empty"}, nil
	}

	kind, _ := filetype.Match(header)
	if kind.Extension == family {
		return Result{OK: true, Tool: "magic"}, nil
	}
	// Old-style tar headers carry no magic; leave those to the tester
	if family == FamilyTar && kind == filetype.Unknown {
		return Result{OK: true, Tool: "magic"}, nil
	}

	detected := kind.Extension
	if kind == filetype.Unknown {
		detected = "unknown data"
	}
	return Result{
		Tool:       "magic",
		Diagnostic: fmt.Sprintf("header does not match a %s archive (found %s)", family, detected),
	}, nil
}
