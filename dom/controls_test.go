package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlTypes(t *testing.T) {
	p := openFixture(t, fixture+`<select id="multi" multiple></select><p id="para"></p>`)

	cases := map[string]string{
		".smart_table_search":  TypeSearch,
		"input[name=active]":   TypeCheckbox,
		"input[name=category]": TypeRadio,
		"input[name=free]":     TypeText,
		"select[name=card]":    TypeSelectOne,
		"#multi":               TypeSelectMultiple,
		"textarea[name=notes]": TypeTextarea,
		"#para":                "",
	}
	for selector, want := range cases {
		assert.Equal(t, want, p.ControlType(p.First(selector)), selector)
	}
}

func TestValues(t *testing.T) {
	p := openFixture(t, fixture)

	assert.Equal(t, "abc", p.Value(p.First(".smart_table_search")))
	assert.Equal(t, "1", p.Value(p.First("input[name=active]")))
	assert.Equal(t, "visa", p.Value(p.First("select[name=card]")))
	assert.Equal(t, "hello", p.Value(p.First("textarea")))
	assert.Equal(t, "active", p.Name(p.First("input[name=active]")))
	assert.True(t, p.Checked(p.First("input[name=active]")))
}

func TestSetValue(t *testing.T) {
	p := openFixture(t, fixture)

	free := p.First("input[name=free]")
	require.NoError(t, p.SetValue(free, "typed"))
	assert.Equal(t, "typed", p.Value(free))

	notes := p.First("textarea")
	require.NoError(t, p.SetValue(notes, "bye"))
	assert.Equal(t, "bye", p.Value(notes))

	card := p.First("select[name=card]")
	require.NoError(t, p.SetValue(card, "master"))
	assert.Equal(t, "master", p.Value(card))

	assert.ErrorIs(t, p.SetValue(p.First("form"), "x"), ErrNotControl)
	assert.ErrorIs(t, p.SelectOption(card, "amex"), ErrNoSuchOption)
	assert.Equal(t, "master", p.Value(card))
}

func TestSetCheckedRadioGroup(t *testing.T) {
	p := openFixture(t, fixture)
	radios := p.Find("input[name=category]")
	require.Len(t, radios, 2)

	require.NoError(t, p.SetChecked(radios[1], true))
	assert.False(t, p.Checked(radios[0]))
	assert.True(t, p.Checked(radios[1]))

	box := p.First("input[name=active]")
	require.NoError(t, p.SetChecked(box, false))
	assert.False(t, p.Checked(box))

	assert.ErrorIs(t, p.SetChecked(p.First("input[name=free]"), true), ErrNotControl)
}
