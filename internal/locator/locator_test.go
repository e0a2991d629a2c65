package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocatorCSS(t *testing.T) {
	tests := []struct {
		name    string
		loc     Locator
		want    string
		wantErr bool
	}{
		{name: "id", loc: ID("i0116"), want: `[id="i0116"]`},
		{name: "id with quote", loc: ID(`a"b`), want: `[id="a\"b"]`},
		{name: "css passthrough", loc: CSS("span.timestamp"), want: "span.timestamp"},
		{name: "attribute prefix", loc: AttrPrefix("data-tid", "message-"), want: `[data-tid^="message-"]`},
		{name: "attribute prefix without attribute", loc: Locator{Strategy: ByAttrPrefix, Selector: "=x"}, wantErr: true},
		{name: "attribute prefix without separator", loc: Locator{Strategy: ByAttrPrefix, Selector: "data-tid"}, wantErr: true},
		{name: "empty selector", loc: CSS("  "), wantErr: true},
		{name: "unknown strategy", loc: Locator{Strategy: "xpath", Selector: "//div"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.loc.CSS()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTeamsSetResolvesEveryRole(t *testing.T) {
	assert.NoError(t, Teams().Validate(AllRoles()...))
}

func TestSetValidate(t *testing.T) {
	set := Set{
		EmailField: ID("i0116"),
		NextButton: Locator{Strategy: "bogus", Selector: "x"},
	}

	err := set.Validate(EmailField, NextButton, PasswordField)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password_field: unresolved")
	assert.Contains(t, err.Error(), "next_button: unknown locator strategy")
	assert.NotContains(t, err.Error(), "email_field")
}

func TestSetMergeDoesNotMutateBase(t *testing.T) {
	base := Teams()
	merged := base.Merge(Set{MessageBody: CSS("div.body")})

	assert.Equal(t, CSS("div.body"), merged[MessageBody])
	assert.Equal(t, CSS("div.message-body-content"), base[MessageBody])
	assert.Len(t, merged, len(base))
}

func TestSetGet(t *testing.T) {
	_, err := Set{}.Get(ChatPane)
	assert.Error(t, err)

	l, err := Teams().Get(ChatPane)
	require.NoError(t, err)
	assert.Equal(t, "id:chat-pane-list", l.String())
}
