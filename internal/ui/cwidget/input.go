package cwidget

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Input is a labelled entry with an inline error line under it.
type Input[T any] struct {
	widget.BaseWidget

	labelWidget *widget.Label
	entryWidget *widget.Entry
	errorWidget *widget.Label

	LabelText   string
	Placeholder string

	OnChanged   func(T)
	OnSubmitted func(T)

	Parser func(string) (T, error)
}

func newInput[T any](label, placeholder string, parser func(string) (T, error)) *Input[T] {
	input := &Input[T]{
		LabelText:   label,
		Placeholder: placeholder,
		Parser:      parser,
	}

	input.labelWidget = widget.NewLabel(label)
	input.labelWidget.TextStyle = fyne.TextStyle{Bold: true}

	input.entryWidget = widget.NewEntry()
	input.entryWidget.SetPlaceHolder(placeholder)

	input.errorWidget = widget.NewLabel("")
	input.errorWidget.Hidden = true
	input.errorWidget.TextStyle = fyne.TextStyle{Italic: true}
	input.errorWidget.Importance = widget.DangerImportance

	input.entryWidget.OnChanged = func(s string) {
		res, err := input.Parser(s)
		input.SetError(nil)

		if err == nil && input.OnChanged != nil {
			input.OnChanged(res)
		}
	}

	input.entryWidget.OnSubmitted = func(s string) {
		res, err := input.Parser(s)
		if err == nil && input.OnSubmitted != nil {
			input.OnSubmitted(res)
		}
	}

	input.ExtendBaseWidget(input)

	return input
}

// NewTextInput accepts any text, including the empty string.
func NewTextInput(label, placeholder string) *Input[string] {
	return newInput(label, placeholder, func(s string) (string, error) {
		return s, nil
	})
}

func (item *Input[T]) CreateRenderer() fyne.WidgetRenderer {
	c := container.NewVBox(
		item.labelWidget,
		item.entryWidget,
		item.errorWidget,
	)

	return widget.NewSimpleRenderer(c)
}

func (item *Input[T]) SetError(err error) {
	item.errorWidget.Hidden = err == nil
	if err != nil {
		item.errorWidget.SetText(err.Error())
	}
	item.errorWidget.Refresh()
}

func (item *Input[T]) ErrorText() string {
	if item.errorWidget.Hidden {
		return ""
	}
	return item.errorWidget.Text
}

func (item *Input[T]) Text() string {
	return item.entryWidget.Text
}

// Entry exposes the underlying entry for focus handling and tests.
func (item *Input[T]) Entry() *widget.Entry {
	return item.entryWidget
}
