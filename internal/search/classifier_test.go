package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		query string
		want  Kind
	}{
		{"60011", KindErrorCode},
		{"errcode 60011", KindErrorCode},
		{"ERRCODE 40013", KindErrorCode},
		{"errcode60011", KindErrorCode},
		{"/cgi-bin/message/send", KindAPIPath},
		{"调用 /cgi-bin/message/send 接口", KindAPIPath},
		{"获取 /open-apis/contact/v3/users", KindAPIPath},
		{"发送应用消息", KindKeyword},
		{"access_token", KindKeyword},
		{"60011条消息", KindKeyword},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

func TestStripErrCodePrefix(t *testing.T) {
	assert.Equal(t, "60011", StripErrCodePrefix("errcode 60011"))
	assert.Equal(t, "60011", StripErrCodePrefix("ERRCODE  60011"))
	assert.Equal(t, "60011", StripErrCodePrefix("60011"))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, 1, ClampLimit(-3))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(999))
}
