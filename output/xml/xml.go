// Package xml provides the xml_output element, which writes every buffer
// as a <record> element of one XML document.
//
// The document root is opened on Start and closed on Stop, so a file is a
// well-formed document once the element has stopped:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<records>
//	  <record source="udp" offset="3" timestamp="1700000000000">
//	    <data>disk full</data>
//	    <meta key="remote_addr">10.0.0.1:514</meta>
//	  </record>
//	</records>
package xml

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
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
const TypeID = "xml_output"

// Config holds the writer settings
type Config struct {
	Path   string `json:"path"`
	Root   string `json:"root"`
	Indent bool   `json:"indent"`
}

type xmlRecord struct {
	XMLName   xml.Name  `xml:"record"`
	Source    string    `xml:"source,attr"`
	Offset    uint64    `xml:"offset,attr"`
	Timestamp int64     `xml:"timestamp,attr"`
	Data      string    `xml:"data"`
	Meta      []xmlMeta `xml:"meta,omitempty"`
}

type xmlMeta struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// Output is the xml_output instance
type Output struct {
	el *element.Element

	mu      sync.Mutex
	cfg     Config
	file    *os.File
	w       *bufio.Writer
	enc     *xml.Encoder
	root    xml.StartElement
	records int64
}

// Type returns the xml_output descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindOutput,
		Name:     "XML Output",
		New:      newOutput,
		Fill: func(s *settings.Data) {
			s.SetDefaultString("path", "")
			s.SetDefaultString("root", "records")
			s.SetDefaultBool("indent", true)
		},
		Props: func() *properties.Properties {
			props := properties.New()
			props.AddPath("path", "Output file", properties.PathFileSave, "XML files (*.xml)", "")
			props.AddText("root", "Root element", properties.TextDefault)
			props.AddBool("indent", "Indent output")
			return props
		},
	}
}

// Register adds xml_output to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newOutput(s *settings.Data, el *element.Element) (element.Instance, error) {
	o := &Output{el: el}
	if err := o.apply(s); err != nil {
		return nil, err
	}
	_, err := el.NewPad("sink", pad.DirectionSink,
		pad.WithChain(pad.ChainFunc(o.chain)),
		pad.WithEvent(pad.EventFunc(o.event)),
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Output) apply(s *settings.Data) error {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return errors.Wrap(err, "XMLOutput", "apply", "decode settings")
	}
	if cfg.Root == "" {
		cfg.Root = "records"
	}
	o.mu.Lock()
	o.cfg = cfg
	o.mu.Unlock()
	return nil
}

// Update applies new settings on the next Start
func (o *Output) Update(s *settings.Data) {
	if err := o.apply(s); err != nil {
		o.el.Logger().Warn("Ignoring invalid settings", "error", err)
	}
}

// Start creates the file and writes the document header
func (o *Output) Start(_ context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cfg.Path == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: path", errors.ErrMissingConfig), "XMLOutput", "Start", "open output")
	}
	if err := os.MkdirAll(filepath.Dir(o.cfg.Path), 0o755); err != nil {
		return errors.WrapFatal(err, "XMLOutput", "Start", "create output directory")
	}
	f, err := os.Create(o.cfg.Path)
	if err != nil {
		return errors.WrapFatal(err, "XMLOutput", "Start", "create output file")
	}

	o.file = f
	o.w = bufio.NewWriter(f)
	o.enc = xml.NewEncoder(o.w)
	if o.cfg.Indent {
		o.enc.Indent("", "  ")
	}
	o.root = xml.StartElement{Name: xml.Name{Local: o.cfg.Root}}
	o.records = 0

	if _, err := o.w.WriteString(xml.Header); err != nil {
		o.closeLocked()
		return errors.WrapTransient(err, "XMLOutput", "Start", "write header")
	}
	if err := o.enc.EncodeToken(o.root); err != nil {
		o.closeLocked()
		return errors.WrapInvalid(err, "XMLOutput", "Start", fmt.Sprintf("open root %q", o.cfg.Root))
	}
	return nil
}

// Stop closes the root element and the file
func (o *Output) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.enc == nil {
		return
	}
	if err := o.enc.EncodeToken(o.root.End()); err != nil {
		o.el.Logger().Error("Failed to close root element", "error", err)
	}
	if err := o.enc.Flush(); err != nil {
		o.el.Logger().Error("Failed to flush encoder", "error", err)
	}
	if _, err := o.w.WriteString("\n"); err != nil {
		o.el.Logger().Error("Failed to finish document", "error", err)
	}
	o.closeLocked()
}

func (o *Output) closeLocked() {
	if err := o.w.Flush(); err != nil {
		o.el.Logger().Warn("Failed to flush output file", "error", err)
	}
	if err := o.file.Close(); err != nil {
		o.el.Logger().Warn("Failed to close output file", "error", err)
	}
	o.file, o.w, o.enc = nil, nil, nil
}

func (o *Output) chain(_ *pad.Pad, buf *pad.Buffer) pad.FlowReturn {
	rec := message.FromBuffer(o.el.Name(), buf)
	x := xmlRecord{
		Source:    rec.Source,
		Offset:    rec.Offset,
		Timestamp: rec.Timestamp,
		Data:      rec.Text(),
	}
	keys := make([]string, 0, len(rec.Meta))
	for k := range rec.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		x.Meta = append(x.Meta, xmlMeta{Key: k, Value: fmt.Sprint(rec.Meta[k])})
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.enc == nil {
		return pad.FlowFlushing
	}
	start := time.Now()
	if err := o.enc.Encode(x); err != nil {
		o.el.Runtime().Metrics().RecordError(o.el.Name(), errors.ErrorInvalid.String())
		o.el.Logger().Error("Failed to encode record", "error", err)
		return pad.FlowError
	}
	o.records++
	o.el.Runtime().Metrics().RecordWrite(o.el.Name(), len(buf.Data), time.Since(start))
	return pad.FlowOK
}

func (o *Output) event(_ *pad.Pad, ev pad.Event) bool {
	if ev.Type == pad.EventEOS {
		o.mu.Lock()
		if o.enc != nil {
			if err := o.enc.Flush(); err != nil {
				o.el.Logger().Warn("Failed to flush encoder", "error", err)
			}
			if err := o.w.Flush(); err != nil {
				o.el.Logger().Warn("Failed to flush output file", "error", err)
			}
		}
		o.mu.Unlock()
	}
	return true
}

// Records returns how many records were written since Start
func (o *Output) Records() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.records
}

// Destroy implements element.Instance
func (o *Output) Destroy() { o.Stop() }
