package mailer

import (
	"bytes"
	"context"
	"testing"

	"props-bible/config"
	"props-bible/core/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPicksLogSenderWithoutSMTP(t *testing.T) {
	var buf bytes.Buffer
	s := New(config.SMTPConfig{}, utils.NewLoggerTo(&buf, "dev"))
	_, ok := s.(*LogSender)
	require.True(t, ok)
	require.NoError(t, s.Send(context.Background(), "a@b.c", "hi", "body", ""))
	assert.Contains(t, buf.String(), "a@b.c")
	assert.ErrorIs(t, s.Send(context.Background(), " ", "hi", "body", ""), ErrNoRecipient)

	s = New(config.SMTPConfig{Host: "smtp.local", From: "noreply@props.local", Port: 25}, nil)
	_, ok = s.(*SMTPSender)
	assert.True(t, ok)
}

func TestInvitationMessageEscapesHTML(t *testing.T) {
	subject, text, html := InvitationMessage(Invitation{
		ShowName: "<Hamlet>", Inviter: "Ann", RoleName: "Stage Manager", Link: "https://props.local/invite?t=x&y",
	})
	assert.Equal(t, "Ann invited you to <Hamlet>", subject)
	assert.Contains(t, text, "https://props.local/invite?t=x&y")
	assert.Contains(t, html, "&lt;Hamlet&gt;")
	assert.Contains(t, html, "t=x&amp;y")
}
