package app

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestTaskImageKey(t *testing.T) {
	got := TaskImageKey("user-1", "task-7", "png")
	if got != "user-1/task-7.png" {
		t.Fatalf("key = %q", got)
	}
}

func TestFileExt(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		valid bool
	}{
		{"photo.png", "png", true},
		{"PHOTO.JPG", "jpg", true},
		{"archive.tar.gz", "gz", true},
		{"noext", "", false},
		{"trailing.", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := fileExt(tc.in)
		if ok != tc.valid || got != tc.want {
			t.Errorf("fileExt(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.valid)
		}
	}
}

// withFakeStorage points the package at an offline S3 client and captures
// object calls through the seams.
func withFakeStorage(t *testing.T) (puts, deletes *[]string) {
	t.Helper()

	prevClient, prevBucket := storageClient, storageBucket
	prevPut, prevDelete := putObject, deleteObject
	t.Cleanup(func() {
		storageClient, storageBucket = prevClient, prevBucket
		putObject, deleteObject = prevPut, prevDelete
	})

	storageClient = s3.New(s3.Options{Region: "us-east-1"})
	storageBucket = "test-bucket"

	var putKeys, deleteKeys []string
	putObject = func(ctx context.Context, c *s3.Client, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		putKeys = append(putKeys, *in.Key)
		return &s3.PutObjectOutput{}, nil
	}
	deleteObject = func(ctx context.Context, c *s3.Client, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		deleteKeys = append(deleteKeys, *in.Key)
		return &s3.DeleteObjectOutput{}, nil
	}
	return &putKeys, &deleteKeys
}

func TestUploadTaskImageNotInitialized(t *testing.T) {
	prev := storageClient
	storageClient = nil
	t.Cleanup(func() { storageClient = prev })

	if err := uploadTaskImage(context.Background(), "user-1/task-1.png", "image/png", []byte("x")); err == nil {
		t.Fatal("expected error with storage disabled")
	}
	if err := deleteTaskImage(context.Background(), "user-1/task-1.png"); err == nil {
		t.Fatal("expected error with storage disabled")
	}
}

func TestUploadAndDeleteTaskImage(t *testing.T) {
	puts, deletes := withFakeStorage(t)

	if err := uploadTaskImage(context.Background(), "user-1/task-1.png", "image/png", []byte("fake png")); err != nil {
		t.Fatalf("uploadTaskImage: %v", err)
	}
	if len(*puts) != 1 || (*puts)[0] != "user-1/task-1.png" {
		t.Fatalf("put keys = %v", *puts)
	}

	if err := deleteTaskImage(context.Background(), "user-1/task-1.png"); err != nil {
		t.Fatalf("deleteTaskImage: %v", err)
	}
	if len(*deletes) != 1 || (*deletes)[0] != "user-1/task-1.png" {
		t.Fatalf("delete keys = %v", *deletes)
	}
}
