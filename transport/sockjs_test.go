package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSockJSFrame(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "empty", in: "", want: ""},
		{name: "open", in: "o", want: ""},
		{name: "heartbeat", in: "h", want: ""},
		{name: "array", in: `a["CONNECTED\nversion:1.2\n\n\u0000"]`, want: "CONNECTED\nversion:1.2\n\n\x00"},
		{name: "array joins", in: `a["ab","cd"]`, want: "abcd"},
		{name: "single", in: `m"xyz"`, want: "xyz"},
		{name: "bad array", in: `a[1,2`, wantErr: true},
		{name: "unknown", in: "x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeSockJSFrame([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestDecodeSockJSFrame_Close(t *testing.T) {
	_, err := decodeSockJSFrame([]byte(`c[3000,"Go away!"]`))
	var ce *CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3000, ce.Code)
	assert.Equal(t, "Go away!", ce.Reason)
}

func TestEncodeSockJSFrame(t *testing.T) {
	data, err := encodeSockJSFrame([]byte("SEND\ndestination:/app/x\n\n{}\x00"))
	require.NoError(t, err)

	var parts []string
	require.NoError(t, json.Unmarshal(data, &parts))
	assert.Equal(t, []string{"SEND\ndestination:/app/x\n\n{}\x00"}, parts)
}
