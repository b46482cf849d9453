package vectorstore

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestPointID_Stable(t *testing.T) {
	a := PointID("demo_src/a.py")
	assert.Equal(t, a, PointID("demo_src/a.py"))
	assert.NotEqual(t, a, PointID("demo_src/b.py"))

	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestPayloadRoundTrip(t *testing.T) {
	r := Record{
		ID:       "demo_a.py",
		Content:  "print('hi')",
		Metadata: map[string]string{"path": "a.py", "repo": "demo", "type": "file", "extension": ".py"},
	}

	hit := fromPayload(toPayload(r))
	assert.Equal(t, r.ID, hit.ID)
	assert.Equal(t, r.Content, hit.Content)
	assert.Equal(t, r.Metadata, hit.Metadata)
}

func TestIsTransientError(t *testing.T) {
	assert.True(t, IsTransientError(status.Error(grpccodes.Unavailable, "down")))
	assert.True(t, IsTransientError(status.Error(grpccodes.DeadlineExceeded, "slow")))
	assert.False(t, IsTransientError(status.Error(grpccodes.NotFound, "missing")))
	assert.False(t, IsTransientError(errors.New("plain")))
	assert.False(t, IsTransientError(nil))

	assert.True(t, isNotFound(status.Error(grpccodes.NotFound, "missing")))
}

func TestQdrantConfig_Validate(t *testing.T) {
	cfg := QdrantConfig{Host: "localhost", Port: 6334, VectorSize: 384}
	require.NoError(t, cfg.Validate())

	cfg.ApplyDefaults()
	assert.Equal(t, 3, cfg.MaxRetries)

	assert.ErrorIs(t, QdrantConfig{Port: 6334, VectorSize: 384}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, QdrantConfig{Host: "h", Port: 70000, VectorSize: 384}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, QdrantConfig{Host: "h", Port: 6334}.Validate(), ErrInvalidConfig)
}

func TestValidateCollectionName(t *testing.T) {
	for _, ok := range []string{"demo", "my-repo", "repo.go", "Repo_2", ".github"} {
		assert.NoError(t, ValidateCollectionName(ok), ok)
	}
	for _, bad := range []string{"", ".", "..", "a/b", "has space", string(make([]byte, 101))} {
		assert.ErrorIs(t, ValidateCollectionName(bad), ErrInvalidCollectionName, bad)
	}
}

func TestCollectionState_String(t *testing.T) {
	assert.Equal(t, "created", CollectionCreated.String())
	assert.Equal(t, "existing", CollectionExisting.String())
}
