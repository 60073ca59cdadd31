package kafka

import "testing"

func TestShouldApply_MonotonicVersions(t *testing.T) {
	d := newVersionDedupe(16)
	if !d.shouldApply("e1", 1) {
		t.Fatal("first version rejected")
	}
	if d.shouldApply("e1", 1) {
		t.Fatal("replayed version accepted")
	}
	if d.shouldApply("e1", 0) {
		t.Fatal("older version accepted")
	}
	if !d.shouldApply("e1", 2) {
		t.Fatal("newer version rejected")
	}
}

func TestShouldApply_KeysIndependent(t *testing.T) {
	d := newVersionDedupe(16)
	if !d.shouldApply("e1", 5) {
		t.Fatal("e1 rejected")
	}
	if !d.shouldApply("e2", 5) {
		t.Fatal("e2 blocked by e1's version")
	}
}

func TestForget_ReleasesVersion(t *testing.T) {
	d := newVersionDedupe(16)
	if !d.shouldApply("e1", 3) {
		t.Fatal("first version rejected")
	}
	d.forget("e1")
	if !d.shouldApply("e1", 3) {
		t.Fatal("version still held after forget")
	}
}

func TestNewVersionDedupe_NonPositiveSize(t *testing.T) {
	d := newVersionDedupe(0)
	if !d.shouldApply("e1", 1) {
		t.Fatal("dedupe with default size rejected first version")
	}
}
