// Package textfile provides the text_file_source element, which reads a
// text file line by line and sends EOS at the end of the file.
package textfile

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/time/rate"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// TypeID identifies the element type
const TypeID = "text_file_source"

// maxLineSize bounds a single line; longer lines end the stream with an error
const maxLineSize = 1024 * 1024

// Config holds the reader settings
type Config struct {
	File      string  `json:"file"`
	SkipEmpty bool    `json:"skip_empty"`
	Rate      float64 `json:"rate"`
}

// Source is the text_file_source instance
type Source struct {
	el *element.Element

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	// owned by the production task between Start and Stop
	file    *os.File
	scanner *bufio.Scanner
	line    uint64
}

// Type returns the text_file_source descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindSource,
		Name:     "Text File",
		New:      newSource,
		Fill: func(s *settings.Data) {
			s.SetDefaultString("file", "")
			s.SetDefaultBool("skip_empty", true)
			s.SetDefaultDouble("rate", 0)
		},
		Props: func() *properties.Properties {
			props := properties.New()
			props.AddPath("file", "File to read", properties.PathFile, "Text files (*.log *.txt);;All files (*.*)", "")
			props.AddBool("skip_empty", "Skip empty lines")
			props.AddFloat("rate", "Lines per second, 0 for no pacing", 0, 1e6, 0.1).SetSuffix("/s")
			return props
		},
	}
}

// Register adds text_file_source to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newSource(s *settings.Data, el *element.Element) (element.Instance, error) {
	src := &Source{el: el}
	if err := src.apply(s); err != nil {
		return nil, err
	}
	if _, err := el.NewPad("src", pad.DirectionSrc, pad.WithCaps(pad.NewCaps("text/plain"))); err != nil {
		return nil, err
	}
	return src, nil
}

func (t *Source) apply(s *settings.Data) error {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return errors.Wrap(err, "TextFileSource", "apply", "decode settings")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg = cfg
	t.limiter = nil
	if cfg.Rate > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	return nil
}

// Update applies new settings. A new file is opened on the next Start.
func (t *Source) Update(s *settings.Data) {
	if err := t.apply(s); err != nil {
		t.el.Logger().Warn("Ignoring invalid settings", "error", err)
	}
}

// Start opens the file from the beginning
func (t *Source) Start(_ context.Context) error {
	t.mu.Lock()
	path := t.cfg.File
	t.mu.Unlock()
	if path == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: file", errors.ErrMissingConfig), "TextFileSource", "Start", "open input")
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.WrapInvalid(err, "TextFileSource", "Start", fmt.Sprintf("open %s", path))
	}
	t.file = f
	t.scanner = bufio.NewScanner(f)
	t.scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	t.line = 0
	t.el.Logger().Debug("Opened input file", "file", path)
	return nil
}

// Stop closes the file
func (t *Source) Stop() {
	if t.file != nil {
		if err := t.file.Close(); err != nil {
			t.el.Logger().Warn("Failed to close input file", "error", err)
		}
		t.file, t.scanner = nil, nil
	}
}

// Produce returns the next line, or EOS at the end of the file
func (t *Source) Produce(ctx context.Context) (*pad.Buffer, pad.FlowReturn) {
	t.mu.Lock()
	limiter, skipEmpty := t.limiter, t.cfg.SkipEmpty
	t.mu.Unlock()

	if t.scanner == nil {
		return nil, pad.FlowFlushing
	}
	for t.scanner.Scan() {
		t.line++
		text := t.scanner.Bytes()
		if skipEmpty && len(text) == 0 {
			continue
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, pad.FlowFlushing
			}
		}
		buf := pad.NewBuffer(append([]byte(nil), text...))
		buf.Offset = t.line
		return buf, pad.FlowOK
	}
	if err := t.scanner.Err(); err != nil {
		t.el.Logger().Error("Failed to read input file", "line", t.line+1, "error", err)
		t.el.Runtime().Metrics().RecordError(t.el.Name(), errors.Classify(err).String())
	}
	return nil, pad.FlowEOS
}

// Destroy closes the file if the element was never stopped
func (t *Source) Destroy() { t.Stop() }
