package s3

import (
	"testing"

	"github.com/PlakarLabs/blobbackup/storage"
)

func TestStorageClassMapping(t *testing.T) {
	for _, tier := range []storage.Tier{storage.TierHot, storage.TierCool, storage.TierArchive} {
		if got := TierFromStorageClass(StorageClass(tier)); got != tier {
			t.Errorf("tier %s mapped back to %s", tier, got)
		}
	}
	if TierFromStorageClass("") != storage.TierHot {
		t.Errorf("expected objects without storage class to be hot")
	}
	if TierFromStorageClass("DEEP_ARCHIVE") != storage.TierArchive {
		t.Errorf("expected DEEP_ARCHIVE to be archive")
	}
}

func TestParseLocation(t *testing.T) {
	parsed, bucket, err := parseLocation("s3://key:secret@minio.local:9000/backups?secure=false")
	if err != nil {
		t.Fatalf("parseLocation: %v", err)
	}
	if bucket != "backups" {
		t.Errorf("expected bucket backups, got %q", bucket)
	}
	if parsed.Host != "minio.local:9000" || parsed.User.Username() != "key" {
		t.Errorf("unexpected url %v", parsed)
	}

	for _, location := range []string{"s3://host", "s3://host/a/b", "fs:///tmp/x"} {
		if _, _, err := parseLocation(location); err == nil {
			t.Errorf("expected error for %q", location)
		}
	}
}
