package builtin

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_UnknownName(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Call("no_such_fn()")
	assert.False(t, ok)
}

func TestCall_NotACall(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Call("uuid")
	assert.False(t, ok)
}

func TestCall_UUID(t *testing.T) {
	r := NewRegistry()
	v, ok := r.Call("uuid()")
	require.True(t, ok)

	_, err := uuid.Parse(v.(string))
	assert.NoError(t, err)
}

func TestCall_Now(t *testing.T) {
	r := NewRegistry()
	v, ok := r.Call("now()")
	require.True(t, ok)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, v)
}

func TestCall_RandomInt(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 50; i++ {
		v, ok := r.Call("random_int(10, 20)")
		require.True(t, ok)
		n := v.(int)
		assert.GreaterOrEqual(t, n, 10)
		assert.LessOrEqual(t, n, 20)
	}
}

func TestCall_RandomString(t *testing.T) {
	r := NewRegistry()
	v, ok := r.Call("random_string(12)")
	require.True(t, ok)
	assert.Len(t, v.(string), 12)
}

func TestCall_RandomPhone(t *testing.T) {
	r := NewRegistry()
	v, ok := r.Call("random_phone()")
	require.True(t, ok)
	assert.Regexp(t, regexp.MustCompile(`^1\d{10}$`), v)
}

func TestCall_MD5(t *testing.T) {
	r := NewRegistry()
	v, ok := r.Call("md5('hello')")
	require.True(t, ok)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", v)
}

func TestCall_Base64(t *testing.T) {
	r := NewRegistry()
	v, ok := r.Call("base64(user:pass)")
	require.True(t, ok)
	assert.Equal(t, "dXNlcjpwYXNz", v)
}

func TestCall_QuotedArgWithComma(t *testing.T) {
	r := NewRegistry()
	v, ok := r.Call(`md5('a,b')`)
	require.True(t, ok)
	assert.Equal(t, "b345e1dc09f20fdefdea469f09167892", v)
}

func TestRegister_Override(t *testing.T) {
	r := NewRegistry()
	r.Register("host", func([]string) any { return "https://api.example.com" })

	v, ok := r.Call("host()")
	require.True(t, ok)
	assert.Equal(t, "https://api.example.com", v)
}
