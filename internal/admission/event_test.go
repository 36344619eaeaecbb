package admission

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLegacyShapeWithNestedRepository(t *testing.T) {
	raw := []byte(`{"event":"repository.updated","payload":{"repository":{"id":"repo-1","ingestStatus":"ready"}}}`)

	event, ok, err := Normalize(raw)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "repository.updated", event.Name)
	require.Equal(t, "repo-1", event.RepositoryID)
	require.Equal(t, "ready", event.IngestStatus)
	require.True(t, event.IsRepositoryEvent())
}

func TestNormalizeLegacyShapeWithFlatRepositoryID(t *testing.T) {
	raw := []byte(`{"event":"repository.ingestion-event","payload":{"repositoryId":"repo-2","ingestStatus":"pending"}}`)

	event, ok, err := Normalize(raw)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "repo-2", event.RepositoryID)
	require.Equal(t, "pending", event.IngestStatus)
}

func TestNormalizeEnvelopeShapeWithEventSubfield(t *testing.T) {
	raw := []byte(`{"event":{"type":"repository.deleted","data":{"event":{"repositoryId":"repo-3","status":"ready"}}}}`)

	event, ok, err := Normalize(raw)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "repository.deleted", event.Name)
	require.Equal(t, "repo-3", event.RepositoryID)
	require.Equal(t, "ready", event.IngestStatus)
}

func TestNormalizeNonRepositoryEventIsNotAdmitted(t *testing.T) {
	raw := []byte(`{"event":"user.login","payload":{"repositoryId":"repo-4"}}`)

	event, ok, err := Normalize(raw)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, event.IsRepositoryEvent())
}

func TestNormalizeMissingRepositoryIDIsNotAnError(t *testing.T) {
	raw := []byte(`{"event":"repository.updated","payload":{"ingestStatus":"ready"}}`)

	event, ok, err := Normalize(raw)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "repository.updated", event.Name)
}

func TestNormalizeMalformedJSONIsAnError(t *testing.T) {
	_, ok, err := Normalize([]byte(`not json`))
	require.ErrorIs(t, err, ErrMalformed)
	require.False(t, ok)
}

func TestNormalizeMissingEventFieldIsMalformed(t *testing.T) {
	_, ok, err := Normalize([]byte(`{"payload":{"repositoryId":"repo-1"}}`))
	require.ErrorIs(t, err, ErrMalformed)
	require.False(t, ok)
}

func TestRequiresIngestReadyGatesOnlyKnownEventNames(t *testing.T) {
	require.True(t, requiresIngestReady("repository.updated"))
	require.True(t, requiresIngestReady("repository.ingestion-event"))
	require.False(t, requiresIngestReady("repository.deleted"))
	require.False(t, requiresIngestReady("repository.created"))
}
