package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xronos/xronos/core"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig())

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "jane@school.org"}}, Subject: "Hi", BodyStr: "Hello"},
		&core.EmailMessage{Subject: "nobody to send to", BodyStr: "Hello"},
		&core.EmailMessage{To: []mail.Address{{Address: "jane@school.org"}}, Subject: "empty"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Hi", sent[0].Subject)
	assert.Equal(t, "Hello", sent[0].TextContent)
}

func TestConsoleService_Format(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig())

	body, err := svc.format(core.EmailMessage{
		To:          []mail.Address{{Name: "Jane", Address: "jane@school.org"}, {Address: "bob@school.org"}},
		Subject:     "Request for Main hall",
		TextContent: "plain",
		HTMLContent: "<p>html</p>",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: [Xronos] Request for Main hall\r\n")
	assert.Contains(t, body, `To: "Jane" <jane@school.org>, <bob@school.org>`)
	assert.Contains(t, body, "Content-Type: text/html")
	assert.Contains(t, body, "<p>html</p>")
}

func TestSendgridService_Prepare(t *testing.T) {
	conf := core.NewTestConfig()
	conf.SendgridAPIKey = "key"
	svc := NewSendgridService(conf, nil)

	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Jane", Address: "jane@school.org"}},
		Cc:          []mail.Address{{Address: "office@school.org"}},
		Subject:     "Hi",
		TextContent: "plain",
	})
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Xronos] Hi", m.Personalizations[0].Subject)
	assert.Len(t, m.Personalizations[0].To, 1)
	assert.Len(t, m.Personalizations[0].CC, 1)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "noreply@localhost", m.From.Address)
}

func TestNewService(t *testing.T) {
	conf := core.NewTestConfig()
	conf.SendgridAPIKey = "key"
	_, isConsole := NewService(conf, nil).(*ConsoleService)
	assert.True(t, isConsole)

	conf.TestMode = false
	_, isSendgrid := NewService(conf, nil).(*SendgridService)
	assert.True(t, isSendgrid)
}
