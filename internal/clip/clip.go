// Package clip copies assistant output to the user's clipboard.
package clip

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"

	"github.com/ghc-desk/ghc/internal/core"
)

// Method is the mechanism that received the text.
type Method string

const (
	MethodNative Method = "native" // OS clipboard via atotto/clipboard
	MethodOSC52  Method = "osc52"  // terminal clipboard escape sequence
	MethodFile   Method = "file"   // temp file, clipboard unavailable
)

// Result reports how the text was copied.
type Result struct {
	Method   Method
	FilePath string // only set for MethodFile
}

// Terminals commonly drop larger OSC52 payloads.
const osc52LimitBytes = 100_000

// Options configures a Copier.
type Options struct {
	// FileFallback writes the text to a temp file when no clipboard works.
	FileFallback bool
	// Terminal receives OSC52 sequences. Defaults to stderr so a Bubble Tea
	// renderer on stdout is not disturbed.
	Terminal *os.File
	TempDir  string
}

// Copier tries the native clipboard, then OSC52, then optionally a file.
type Copier struct {
	opts   Options
	native func(string) error
	osc52  func(string) error
}

// New creates a Copier.
func New(opts Options) *Copier {
	if opts.Terminal == nil {
		opts.Terminal = os.Stderr
	}
	c := &Copier{opts: opts, native: atotto.WriteAll}
	c.osc52 = c.writeOSC52
	return c
}

// WriteAll copies text. Blank text is rejected.
func (c *Copier) WriteAll(text string) (Result, error) {
	if text == "" {
		return Result{}, core.ErrValidation(core.CodeNothingToCopy, "nothing to copy")
	}

	nativeErr := c.native(text)
	if nativeErr == nil {
		return Result{Method: MethodNative}, nil
	}
	oscErr := c.osc52(text)
	if oscErr == nil {
		return Result{Method: MethodOSC52}, nil
	}

	if !c.opts.FileFallback {
		return Result{}, core.ErrExecution(core.CodeClipboardFailed, "Copy failed.").
			WithCause(errors.Join(nativeErr, oscErr))
	}
	path, err := c.writeTempFile(text)
	if err != nil {
		return Result{}, core.ErrExecution(core.CodeClipboardFailed, "Copy failed.").WithCause(err)
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

func (c *Copier) writeOSC52(text string) error {
	if !term.IsTerminal(int(c.opts.Terminal.Fd())) {
		return errors.New("not a terminal")
	}
	return writeOSC52To(c.opts.Terminal, text)
}

func writeOSC52To(w io.Writer, text string) error {
	if len(text) > osc52LimitBytes {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52LimitBytes)
	}
	seq := osc52.New(text).Limit(osc52LimitBytes)
	switch {
	case os.Getenv("TMUX") != "":
		seq = seq.Tmux()
	case os.Getenv("STY") != "":
		seq = seq.Screen()
	}
	_, err := seq.WriteTo(w)
	return err
}

func (c *Copier) writeTempFile(text string) (path string, err error) {
	f, err := os.CreateTemp(c.opts.TempDir, "ghc-output-*.md")
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()

	if _, err = f.WriteString(text); err != nil {
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}
