// Package tracking defines the value domains a configuration can track.
//
// Type is a closed sum: every implementation lives in this package, and
// consumers switch over *Options and TextEntry exhaustively.
package tracking

import "fmt"

// Persisted tags.
const (
	TagOneToTen  = "ONE_TO_TEN"
	TagYesNo     = "YES_NO"
	TagTextEntry = "TEXT_ENTRY"
)

// TextRecorded is the item value stored for a free-text configuration once a
// comment has been written for the day.
const TextRecorded = 1

// Type is the value domain of a configuration.
type Type interface {
	Tag() string
	sealed()
}

// Option is one selectable value of an Options type.
type Option struct {
	Value int
	Short string // short label for the report grid; empty means show Value
	Text  string
}

// Label returns the grid label for the option.
func (o Option) Label() string {
	if o.Short != "" {
		return o.Short
	}
	return fmt.Sprintf("%d", o.Value)
}

// Options is a tracking type with a fixed list of selectable values.
type Options struct {
	tag     string
	name    string
	Options []Option
}

func (o *Options) Tag() string  { return o.tag }
func (o *Options) Name() string { return o.name }
func (*Options) sealed()        {}

// Find returns the option carrying value.
func (o *Options) Find(value int) (Option, bool) {
	for _, opt := range o.Options {
		if opt.Value == value {
			return opt, true
		}
	}
	return Option{}, false
}

// MaxValue is the largest option value.
func (o *Options) MaxValue() int {
	m := 0
	for _, opt := range o.Options {
		if opt.Value > m {
			m = opt.Value
		}
	}
	return m
}

// Next returns the option after value, wrapping to the first. A nil value
// yields the first option.
func (o *Options) Next(value *int) int {
	if value == nil {
		return o.Options[0].Value
	}
	for i, opt := range o.Options {
		if opt.Value == *value {
			return o.Options[(i+1)%len(o.Options)].Value
		}
	}
	return o.Options[0].Value
}

// TextEntry is a free-text journal type. Its text lives in the item comment.
type TextEntry struct{}

func (TextEntry) Tag() string { return TagTextEntry }
func (TextEntry) sealed()     {}

var (
	OneToTen = &Options{tag: TagOneToTen, name: "1–10", Options: oneToTen()}
	YesNo    = &Options{tag: TagYesNo, name: "Yes/No", Options: []Option{
		{Value: 0, Short: "N", Text: "No"},
		{Value: 1, Short: "Y", Text: "Yes"},
	}}
	Text Type = TextEntry{}
)

func oneToTen() []Option {
	opts := make([]Option, 0, 10)
	for v := 1; v <= 10; v++ {
		opts = append(opts, Option{Value: v, Text: fmt.Sprintf("%d", v)})
	}
	return opts
}

// All lists every tracking type in display order.
func All() []Type {
	return []Type{OneToTen, YesNo, Text}
}

// Parse maps a persisted tag back to its type.
func Parse(tag string) (Type, error) {
	switch tag {
	case TagOneToTen:
		return OneToTen, nil
	case TagYesNo:
		return YesNo, nil
	case TagTextEntry:
		return Text, nil
	}
	return nil, fmt.Errorf("unknown tracking type %q", tag)
}

// Name is the human readable name of t.
func Name(t Type) string {
	switch t := t.(type) {
	case *Options:
		return t.name
	case TextEntry:
		return "Text"
	}
	panic(fmt.Sprintf("tracking: unhandled type %T", t))
}

// Notifiable reports whether an unrecorded value of t should trigger the
// daily reminder.
func Notifiable(t Type) bool {
	switch t.(type) {
	case *Options:
		return true
	case TextEntry:
		return false
	}
	panic(fmt.Sprintf("tracking: unhandled type %T", t))
}

// NotifiableTags lists the tags of every notifiable type.
func NotifiableTags() []string {
	var tags []string
	for _, t := range All() {
		if Notifiable(t) {
			tags = append(tags, t.Tag())
		}
	}
	return tags
}

// Label renders a recorded value of t for display. The second result is
// false when value has no meaning for t.
func Label(t Type, value int) (string, bool) {
	switch t := t.(type) {
	case *Options:
		if opt, ok := t.Find(value); ok {
			return opt.Label(), true
		}
		return fmt.Sprintf("%d", value), true
	case TextEntry:
		if value == TextRecorded {
			return "✎", true
		}
		return "", false
	}
	panic(fmt.Sprintf("tracking: unhandled type %T", t))
}

// Validate checks that value is acceptable for t.
func Validate(t Type, value int) error {
	switch t := t.(type) {
	case *Options:
		if _, ok := t.Find(value); !ok {
			return fmt.Errorf("value %d is not an option of %s", value, t.name)
		}
		return nil
	case TextEntry:
		if value != TextRecorded {
			return fmt.Errorf("text entries record comments, not values")
		}
		return nil
	}
	panic(fmt.Sprintf("tracking: unhandled type %T", t))
}
