package jsonfilter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
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
const TypeID = "json_filter"

// Match modes
const (
	MatchAll = "all"
	MatchAny = "any"
)

// Actions for payloads that are not JSON objects
const (
	InvalidDrop = "drop"
	InvalidPass = "pass"
)

// Operators lists the supported rule operators
var Operators = []string{"eq", "ne", "gt", "gte", "lt", "lte", "contains", "exists", "regex"}

// Config holds configuration for the JSON filter
type Config struct {
	Rules     []FilterRule `json:"rules"`
	Match     string       `json:"match"`
	OnInvalid string       `json:"on_invalid"`
}

// FilterRule defines a single filter condition
type FilterRule struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	switch c.Match {
	case MatchAll, MatchAny:
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", fmt.Sprintf("unknown match mode %q", c.Match))
	}
	switch c.OnInvalid {
	case InvalidDrop, InvalidPass:
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", fmt.Sprintf("unknown on_invalid action %q", c.OnInvalid))
	}
	for i, r := range c.Rules {
		if r.Field == "" {
			return errors.WrapInvalid(fmt.Errorf("%w: rules[%d].field", errors.ErrMissingConfig, i), "Config", "Validate", "field is required")
		}
		if !isOperator(r.Operator) {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", fmt.Sprintf("rules[%d]: unknown operator %q", i, r.Operator))
		}
	}
	return nil
}

func isOperator(op string) bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// compiledRule is a rule with its regular expression prepared
type compiledRule struct {
	FilterRule
	re *regexp.Regexp
}

// Filter forwards buffers whose JSON payload matches its rules
type Filter struct {
	el *element.Element

	mu        sync.RWMutex
	rules     []compiledRule
	matchAny  bool
	passOnBad bool

	metrics *filterMetrics

	messagesProcessed atomic.Int64
	messagesPassed    atomic.Int64
	messagesFiltered  atomic.Int64
	errors            atomic.Int64
}

// Type returns the json_filter descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindProcess,
		Name:     "JSON Filter",
		New:      newFilter,
		Fill: func(s *settings.Data) {
			s.SetDefaultString("match", MatchAll)
			s.SetDefaultString("on_invalid", InvalidDrop)
		},
		Props: func() *properties.Properties {
			props := properties.New()
			match := props.AddList("match", "Rules that must match", properties.ComboList, properties.ComboFormatString)
			match.AddItemString("All rules", MatchAll)
			match.AddItemString("Any rule", MatchAny)
			invalid := props.AddList("on_invalid", "Payloads that are not JSON objects", properties.ComboList, properties.ComboFormatString)
			invalid.AddItemString("Drop", InvalidDrop)
			invalid.AddItemString("Pass through", InvalidPass)
			props.AddEditableList("rules", "Filter rules (field, operator, value)", properties.EditableListStrings, "", "")
			return props
		},
	}
}

// Register adds json_filter to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newFilter(s *settings.Data, el *element.Element) (element.Instance, error) {
	f := &Filter{el: el}
	if err := f.apply(s); err != nil {
		return nil, err
	}
	metrics, err := newFilterMetrics(el.Runtime().MetricsRegistry(), el.Name())
	if err != nil {
		return nil, err
	}
	f.metrics = metrics

	if _, err := el.NewPad("sink", pad.DirectionSink, pad.WithChain(pad.ChainFunc(f.chain))); err != nil {
		f.metrics.unregister()
		return nil, err
	}
	if _, err := el.NewPad("src", pad.DirectionSrc); err != nil {
		f.metrics.unregister()
		return nil, err
	}
	return f, nil
}

func (f *Filter) apply(s *settings.Data) error {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return errors.Wrap(err, "JSONFilter", "apply", "decode settings")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	rules := make([]compiledRule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		cr := compiledRule{FilterRule: r}
		if r.Operator == "regex" {
			re, err := regexp.Compile(fmt.Sprint(r.Value))
			if err != nil {
				return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err), "JSONFilter", "apply", "compile regex for "+r.Field)
			}
			cr.re = re
		}
		rules = append(rules, cr)
	}

	f.mu.Lock()
	f.rules = rules
	f.matchAny = cfg.Match == MatchAny
	f.passOnBad = cfg.OnInvalid == InvalidPass
	f.mu.Unlock()
	return nil
}

// Update replaces the rules
func (f *Filter) Update(s *settings.Data) {
	if err := f.apply(s); err != nil {
		f.el.Logger().Warn("Ignoring invalid settings", "error", err)
	}
}

func (f *Filter) chain(_ *pad.Pad, buf *pad.Buffer) pad.FlowReturn {
	f.messagesProcessed.Add(1)

	data, err := message.Object(buf)
	if err != nil {
		f.errors.Add(1)
		f.metrics.recordError("parse")
		f.mu.RLock()
		pass := f.passOnBad
		f.mu.RUnlock()
		if pass {
			return f.el.PushAll(buf)
		}
		f.el.Runtime().Metrics().RecordDrop(f.el.Name(), "invalid")
		f.el.Logger().Debug("Dropping non-JSON payload", "size_bytes", buf.Size())
		return pad.FlowOK
	}

	start := time.Now()
	matched := f.matchesRules(data)
	f.metrics.recordEvaluation(matched, time.Since(start))

	if !matched {
		f.messagesFiltered.Add(1)
		f.el.Runtime().Metrics().RecordDrop(f.el.Name(), "filtered")
		return pad.FlowOK
	}
	f.messagesPassed.Add(1)
	if processed := f.messagesProcessed.Load(); processed%100 == 0 {
		f.metrics.updateMatchRate(f.messagesPassed.Load(), processed)
	}
	return f.el.PushAll(buf)
}

// matchesRules applies every rule; no rules pass everything
func (f *Filter) matchesRules(data map[string]any) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.rules) == 0 {
		return true
	}
	for _, rule := range f.rules {
		ok := matchesRule(data, rule)
		if f.matchAny && ok {
			return true
		}
		if !f.matchAny && !ok {
			return false
		}
	}
	return !f.matchAny
}

// matchesRule checks a single rule; missing fields only satisfy "ne"
func matchesRule(data map[string]any, rule compiledRule) bool {
	value, found := message.Lookup(data, rule.Field)
	if rule.Operator == "exists" {
		return found
	}
	if !found || value == nil {
		return rule.Operator == "ne"
	}

	switch rule.Operator {
	case "eq":
		return fmt.Sprint(value) == fmt.Sprint(rule.Value)
	case "ne":
		return fmt.Sprint(value) != fmt.Sprint(rule.Value)
	case "gt", "gte", "lt", "lte":
		a, okA := toFloat64(value)
		b, okB := toFloat64(rule.Value)
		if !okA || !okB {
			return false
		}
		switch rule.Operator {
		case "gt":
			return a > b
		case "gte":
			return a >= b
		case "lt":
			return a < b
		default:
			return a <= b
		}
	case "contains":
		return strings.Contains(fmt.Sprint(value), fmt.Sprint(rule.Value))
	case "regex":
		return rule.re.MatchString(fmt.Sprint(value))
	default:
		return false
	}
}

// toFloat64 converts JSON numbers and numeric strings
func toFloat64(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Stats returns processed, passed, filtered and error counts
func (f *Filter) Stats() (processed, passed, filtered, errs int64) {
	return f.messagesProcessed.Load(), f.messagesPassed.Load(), f.messagesFiltered.Load(), f.errors.Load()
}

// Destroy implements element.Instance
func (f *Filter) Destroy() { f.metrics.unregister() }
