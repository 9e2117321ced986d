package file

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/message"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// TypeID identifies the element type
const TypeID = "file_output"

// Config holds configuration for the file output
type Config struct {
	Path            string `json:"path"`
	Format          string `json:"format"`
	Append          bool   `json:"append"`
	BufferSize      int    `json:"buffer_size"`
	FlushIntervalMS int    `json:"flush_interval_ms"`
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: path", errors.ErrMissingConfig), "Config", "Validate", "path is required")
	}
	if _, err := message.ParseFormat(c.Format); err != nil {
		return err
	}
	if c.BufferSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "buffer_size cannot be negative")
	}
	if c.FlushIntervalMS < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "flush_interval_ms cannot be negative")
	}
	return nil
}

// Output writes buffers to a file
type Output struct {
	el *element.Element

	cfgMu sync.Mutex
	cfg   Config
	fmt   message.Format

	// File handling
	file   *os.File
	fileMu sync.Mutex

	// Buffer for batching writes
	buffer   [][]byte
	bufferMu sync.Mutex

	lifecycleMu sync.Mutex
	running     atomic.Bool
	shutdown    chan struct{}
	wg          sync.WaitGroup

	messagesWritten atomic.Int64
	bytesWritten    atomic.Int64
	errors          atomic.Int64
}

// Type returns the file_output descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindOutput,
		Name:     "File Output",
		New:      newOutput,
		Fill: func(s *settings.Data) {
			s.SetDefaultString("path", "")
			s.SetDefaultString("format", string(message.FormatLines))
			s.SetDefaultBool("append", true)
			s.SetDefaultInt("buffer_size", 100)
			s.SetDefaultInt("flush_interval_ms", 1000)
		},
		Props: func() *properties.Properties {
			props := properties.New()
			props.AddPath("path", "Output file", properties.PathFileSave, "Log files (*.log *.jsonl);;All files (*.*)", "")
			formats := props.AddList("format", "Format", properties.ComboList, properties.ComboFormatString)
			formats.AddItemString("Raw bytes", string(message.FormatRaw))
			formats.AddItemString("Lines", string(message.FormatLines))
			formats.AddItemString("JSON Lines", string(message.FormatJSONL))
			props.AddBool("append", "Append to an existing file")
			props.AddInt("buffer_size", "Buffers per write", 1, math.MaxInt32, 1)
			props.AddInt("flush_interval_ms", "Flush interval", 0, 3600000, 100).SetSuffix(" ms")
			return props
		},
	}
}

// Register adds file_output to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newOutput(s *settings.Data, el *element.Element) (element.Instance, error) {
	f := &Output{el: el}
	if err := f.apply(s); err != nil {
		return nil, err
	}
	_, err := el.NewPad("sink", pad.DirectionSink,
		pad.WithChain(pad.ChainFunc(f.chain)),
		pad.WithEvent(pad.EventFunc(f.event)),
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Output) apply(s *settings.Data) error {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return errors.Wrap(err, "FileOutput", "apply", "decode settings")
	}
	format, err := message.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	f.cfgMu.Lock()
	f.cfg = cfg
	f.fmt = format
	f.cfgMu.Unlock()
	return nil
}

func (f *Output) config() (Config, message.Format) {
	f.cfgMu.Lock()
	defer f.cfgMu.Unlock()
	return f.cfg, f.fmt
}

// Update applies new settings. Path and append take effect on the next
// Start.
func (f *Output) Update(s *settings.Data) {
	if err := f.apply(s); err != nil {
		f.el.Logger().Warn("Ignoring invalid settings", "error", err)
	}
}

// Start opens the output file and begins periodic flushing
func (f *Output) Start(ctx context.Context) error {
	f.lifecycleMu.Lock()
	defer f.lifecycleMu.Unlock()

	if f.running.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "FileOutput", "Start", "check running state")
	}
	cfg, format := f.config()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return errors.WrapFatal(err, "FileOutput", "Start", "create output directory")
	}
	flags := os.O_CREATE | os.O_WRONLY
	if cfg.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(cfg.Path, flags, 0o644)
	if err != nil {
		return errors.WrapFatal(err, "FileOutput", "Start", "open output file")
	}

	f.fileMu.Lock()
	f.file = file
	f.fileMu.Unlock()

	f.shutdown = make(chan struct{})
	if cfg.FlushIntervalMS > 0 {
		f.wg.Add(1)
		go f.flushLoop(ctx, time.Duration(cfg.FlushIntervalMS)*time.Millisecond)
	}
	f.running.Store(true)

	f.el.Logger().Info("File output started",
		"output_file", cfg.Path,
		"format", format,
		"append", cfg.Append,
		"buffer_size", cfg.BufferSize)
	return nil
}

// Stop flushes pending buffers and closes the file
func (f *Output) Stop() {
	f.lifecycleMu.Lock()
	defer f.lifecycleMu.Unlock()

	if !f.running.Swap(false) {
		return
	}
	close(f.shutdown)
	f.wg.Wait()

	f.flush()

	f.fileMu.Lock()
	if f.file != nil {
		if err := f.file.Close(); err != nil {
			f.el.Logger().Warn("Failed to close output file", "error", err, "path", f.file.Name())
		}
		f.file = nil
	}
	f.fileMu.Unlock()
}

func (f *Output) chain(_ *pad.Pad, buf *pad.Buffer) pad.FlowReturn {
	if !f.running.Load() {
		return pad.FlowFlushing
	}
	cfg, format := f.config()
	data, err := message.Encode(format, f.el.Name(), buf)
	if err != nil {
		f.errors.Add(1)
		f.el.Runtime().Metrics().RecordError(f.el.Name(), errors.Classify(err).String())
		f.el.Logger().Error("Failed to encode buffer", "error", err)
		return pad.FlowError
	}

	f.bufferMu.Lock()
	f.buffer = append(f.buffer, data)
	shouldFlush := len(f.buffer) >= cfg.BufferSize
	f.bufferMu.Unlock()

	if shouldFlush {
		if n := f.flush(); n > 0 {
			return pad.FlowError
		}
	}
	return pad.FlowOK
}

func (f *Output) event(_ *pad.Pad, ev pad.Event) bool {
	switch ev.Type {
	case pad.EventEOS:
		f.flush()
		f.fileMu.Lock()
		if f.file != nil {
			if err := f.file.Sync(); err != nil {
				f.el.Logger().Warn("Failed to sync output file", "error", err)
			}
		}
		f.fileMu.Unlock()
		f.el.Logger().Debug("EOS reached, output flushed", "messages_written", f.messagesWritten.Load())
	case pad.EventFlushStart:
		f.bufferMu.Lock()
		dropped := len(f.buffer)
		f.buffer = nil
		f.bufferMu.Unlock()
		for i := 0; i < dropped; i++ {
			f.el.Runtime().Metrics().RecordDrop(f.el.Name(), "flush")
		}
	}
	return true
}

// flushLoop periodically flushes the buffer
func (f *Output) flushLoop(ctx context.Context, interval time.Duration) {
	defer f.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.shutdown:
			return
		case <-ticker.C:
			f.flush()
		}
	}
}

// flush writes buffered data to the file and returns how many writes
// failed
func (f *Output) flush() int {
	f.bufferMu.Lock()
	if len(f.buffer) == 0 {
		f.bufferMu.Unlock()
		return 0
	}
	messages := f.buffer
	f.buffer = nil
	f.bufferMu.Unlock()

	f.fileMu.Lock()
	defer f.fileMu.Unlock()

	if f.file == nil {
		f.errors.Add(int64(len(messages)))
		f.el.Logger().Error("File handle is nil during flush", "messages_lost", len(messages))
		return len(messages)
	}

	failed := 0
	for i, msg := range messages {
		start := time.Now()
		n, err := f.file.Write(msg)
		if err != nil {
			failed++
			f.errors.Add(1)
			f.el.Runtime().Metrics().RecordError(f.el.Name(), errors.ErrorTransient.String())
			f.el.Logger().Error("Failed to write message to file", "message_index", i, "error", err)
			continue
		}
		f.messagesWritten.Add(1)
		f.bytesWritten.Add(int64(n))
		f.el.Runtime().Metrics().RecordWrite(f.el.Name(), n, time.Since(start))
	}
	return failed
}

// Stats returns messages written, bytes written and write errors
func (f *Output) Stats() (messages, bytes, errs int64) {
	return f.messagesWritten.Load(), f.bytesWritten.Load(), f.errors.Load()
}

// Pending returns the number of buffered, unwritten buffers
func (f *Output) Pending() int {
	f.bufferMu.Lock()
	defer f.bufferMu.Unlock()
	return len(f.buffer)
}

// Destroy implements element.Instance
func (f *Output) Destroy() { f.Stop() }
