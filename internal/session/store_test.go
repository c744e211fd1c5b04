package session

import (
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	filename := path.Join(t.TempDir(), "state", stateFileName)

	rec := &Record{
		TenantID:         "11111111-2222-3333-4444-555555555555",
		SubscriptionID:   "sub-1",
		SubscriptionName: "Production",
		ResourceGroup:    "paw-rg",
		Region:           "westeurope",
		VirtualNetwork:   "paw-vnet",
		Subnet:           "paw-subnet",
		NamingPrefix:     "PAW",
		StorageAccount:   "pawprofiles001",
		StandardGroup:    GroupRef{ID: "g1", DisplayName: "PAW Users"},
		ElevatedGroup:    GroupRef{ID: "g2", DisplayName: "PAW Admins"},
		TemplatePath:     "templates/paw-core.json",
		HostPool:         "PAW-hp",
		Workspace:        "PAW-ws",
		ApplicationGroup: "PAW-dag",
		SavedAt:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, saveTo(filename, rec))

	loaded, err := loadFrom(filename)
	require.NoError(t, err)
	assert.Equal(t, rec, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	rec, err := loadFrom(path.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLoadMalformedFile(t *testing.T) {
	filename := path.Join(t.TempDir(), stateFileName)
	require.NoError(t, os.WriteFile(filename, []byte("{not json"), 0600))

	rec, err := loadFrom(filename)
	assert.Error(t, err)
	assert.Nil(t, rec)
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	filename := path.Join(t.TempDir(), stateFileName)
	content := `{"resourceGroup":"paw-rg","someFutureField":{"a":1}}`
	require.NoError(t, os.WriteFile(filename, []byte(content), 0600))

	rec, err := loadFrom(filename)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "paw-rg", rec.ResourceGroup)
	assert.Empty(t, rec.StorageAccount)
}
