package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memberKeys(v Value) []string {
	var keys []string
	for _, m := range v.Members() {
		keys = append(keys, m.Key)
	}
	return keys
}

func TestParse_PreservesMemberOrder(t *testing.T) {
	v, err := Parse([]byte(`{"zeta":1,"alpha":{"y":true,"b":null},"mid":["x",2]}`))
	require.NoError(t, err)

	assert.Equal(t, Object, v.Kind())
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, memberKeys(v))

	alpha, ok := v.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, []string{"y", "b"}, memberKeys(alpha))

	mid, ok := v.Get("mid")
	require.True(t, ok)
	require.Len(t, mid.Elements(), 2)
	s, ok := mid.Elements()[0].Str()
	assert.True(t, ok)
	assert.Equal(t, "x", s)
}

func TestParse_KeepsNumberLiterals(t *testing.T) {
	v, err := Parse([]byte(`{"big":12345678901234567890,"f":1.50}`))
	require.NoError(t, err)

	big, _ := v.Get("big")
	n, ok := big.Number()
	require.True(t, ok)
	assert.Equal(t, "12345678901234567890", n.String())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"big":12345678901234567890,"f":1.50}`, string(out))
}

func TestParse_DuplicateKeyKeepsFirstPositionLastValue(t *testing.T) {
	v, err := Parse([]byte(`{"a":1,"b":2,"a":3}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, memberKeys(v))
	a, _ := v.Get("a")
	n, _ := a.Number()
	assert.Equal(t, "3", n.String())
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ``},
		{name: "truncated object", input: `{"a":`},
		{name: "trailing value", input: `{} {}`},
		{name: "bad literal", input: `{"a":tru}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestMarshalJSON_WritesMembersInOrder(t *testing.T) {
	v := ObjectValue(
		M("z", StringValue("last \"quoted\"")),
		M("a", ArrayValue(BoolValue(true), NullValue(), NumberValue("7"))),
		M("empty", ObjectValue()),
	)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"last \"quoted\"","a":[true,null,7],"empty":{}}`, string(out))
}

func TestUnmarshalJSON_EmbeddedInStruct(t *testing.T) {
	var wrapper struct {
		Entry Value `json:"entry"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"entry":{"title":"Hello","uid":"blt1"}}`), &wrapper))

	assert.Equal(t, []string{"title", "uid"}, memberKeys(wrapper.Entry))
	title, ok := wrapper.Entry.GetString("title")
	assert.True(t, ok)
	assert.Equal(t, "Hello", title)
}

func TestAccessors_WrongKind(t *testing.T) {
	s := StringValue("x")
	assert.Nil(t, s.Members())
	assert.Nil(t, s.Elements())
	_, ok := s.Get("x")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	var zero Value
	assert.True(t, zero.IsNull())
	_, ok = zero.Str()
	assert.False(t, ok)
}
