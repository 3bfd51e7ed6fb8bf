package mq

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionName(t *testing.T) {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	assert.Equal(t, "milestones/publisher@"+host, connectionName("publisher"))
	assert.Equal(t, "milestones/consumer:milestone.drafts@"+host, connectionName("consumer:milestone.drafts"))
}
