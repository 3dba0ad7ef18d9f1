package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type fakeS3 struct {
	headErr   error
	headCalls []string
}

func (f *fakeS3) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.headCalls = append(f.headCalls, *params.Key)
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{}, nil
}

type fakeUploader struct {
	uploadErr error
	uploaded  []string
}

func (f *fakeUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.uploaded = append(f.uploaded, *input.Key)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &manager.UploadOutput{}, nil
}

type notFoundError struct{}

func (notFoundError) Error() string                 { return "NotFound" }
func (notFoundError) ErrorCode() string             { return "NotFound" }
func (notFoundError) ErrorMessage() string          { return "not found" }
func (notFoundError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

func mirrorSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content.bin")
	if err := os.WriteFile(path, []byte("mirrored bytes"), 0644); err != nil {
		t.Fatalf("writing source: %v", err)
	}
	return path
}

func TestS3Mirror_Mirror(t *testing.T) {
	t.Run("uploads missing object", func(t *testing.T) {
		client := &fakeS3{headErr: notFoundError{}}
		up := &fakeUploader{}
		m := newS3MirrorWithClients("bucket", "content", client, up)

		if err := m.Mirror("HASH123", mirrorSource(t)); err != nil {
			t.Fatalf("Mirror() error = %v", err)
		}
		if len(up.uploaded) != 1 || up.uploaded[0] != "content/HASH123" {
			t.Errorf("uploaded = %v, want [content/HASH123]", up.uploaded)
		}
	})

	t.Run("skips existing object", func(t *testing.T) {
		client := &fakeS3{}
		up := &fakeUploader{}
		m := newS3MirrorWithClients("bucket", "", client, up)

		if err := m.Mirror("HASH123", mirrorSource(t)); err != nil {
			t.Fatalf("Mirror() error = %v", err)
		}
		if len(up.uploaded) != 0 {
			t.Errorf("uploaded = %v, want no uploads for existing object", up.uploaded)
		}
	})

	t.Run("propagates head errors", func(t *testing.T) {
		client := &fakeS3{headErr: errors.New("access denied")}
		m := newS3MirrorWithClients("bucket", "", client, &fakeUploader{})

		if err := m.Mirror("HASH123", mirrorSource(t)); err == nil {
			t.Error("Mirror() error = nil, want error for non-404 head failure")
		}
	})

	t.Run("propagates upload errors", func(t *testing.T) {
		client := &fakeS3{headErr: notFoundError{}}
		up := &fakeUploader{uploadErr: errors.New("bucket gone")}
		m := newS3MirrorWithClients("bucket", "", client, up)

		if err := m.Mirror("HASH123", mirrorSource(t)); err == nil {
			t.Error("Mirror() error = nil, want upload error")
		}
	})
}
