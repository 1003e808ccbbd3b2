package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certifyapp/certnotify/internal/config"
)

func TestPreview(t *testing.T) {
	t.Setenv("CERTNOTIFY_EMAIL_PROVIDER", "log")
	t.Setenv("CERTNOTIFY_EMAIL_BASE_URL", "https://certifyapp.com")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"preview", "--name", "Diploma", "--status", "rejected", "--token", "T1", "--to", "a@x.com"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "To:      a@x.com")
	assert.Contains(t, out.String(), `Subject: Certificate Status Update: "Diploma"`)
	assert.Contains(t, out.String(), `Your certificate "Diploma" has been rejected.`)
	assert.Contains(t, out.String(), "https://certifyapp.com/view/T1")
}

func TestSampleRecord_RejectsNonTerminalStatus(t *testing.T) {
	certStatus = "pending"
	t.Cleanup(func() { certStatus = "approved" })

	_, err := sampleRecord()
	assert.Error(t, err)
}

func TestPreview_NeedsNoProviderSecret(t *testing.T) {
	t.Setenv("CERTNOTIFY_EMAIL_PROVIDER", "sendgrid")
	t.Setenv("CERTNOTIFY_EMAIL_SENDGRID_API_KEY", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"preview", "--name", "Diploma", "--status", "approved", "--to", "a@x.com"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), `Your certificate "Diploma" has been approved.`)
}

func TestSendTest_RequiresProviderSecret(t *testing.T) {
	t.Setenv("CERTNOTIFY_EMAIL_PROVIDER", "sendgrid")
	t.Setenv("CERTNOTIFY_EMAIL_SENDGRID_API_KEY", "")

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"send-test", "--to", "a@x.com"})
	err := rootCmd.Execute()
	require.ErrorIs(t, err, config.ErrMissingSecret)
}
