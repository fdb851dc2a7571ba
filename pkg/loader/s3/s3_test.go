package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/loader"
)

type fakeS3 struct {
	objects map[string]string
	gets    int
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets++
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3SourceLoader(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"imports/uploads/a.json": `[{"id":"1"}]`}}
	l := NewS3SourceLoaderWithClient("imports", client)
	assert.Equal(t, common.SourceKindStorage, l.Kind())

	f := loader.NewSourceFile(loader.NewSourceFileParams{ID: "job", Path: "uploads/a.json", Loader: l})
	assert.Equal(t, common.SourceKindStorage, f.Kind)
	for range 2 {
		b, err := f.GetBytes(context.Background())
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"1"}]`, string(b))
	}
	assert.Equal(t, 1, client.gets)

	f.Path = "uploads/missing.json"
	_, err := f.GetBytes(context.Background())
	assert.ErrorContains(t, err, "s3://imports/uploads/missing.json")
}
