package natsservice

import (
	"reflect"
	"testing"
)

func TestSortChunkKeys(t *testing.T) {
	keys := []string{
		"1724577600000000300",
		"1724577600000000100",
		"9",
		"1724577600000000200",
	}
	SortChunkKeys(keys)

	want := []string{
		"9",
		"1724577600000000100",
		"1724577600000000200",
		"1724577600000000300",
	}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("unexpected order: %v", keys)
	}
}

func TestSortChunkKeysKeepsUnparsableLast(t *testing.T) {
	keys := []string{"not-a-key", "200", "100"}
	SortChunkKeys(keys)

	if keys[0] != "100" || keys[1] != "200" || keys[2] != "not-a-key" {
		t.Errorf("unexpected order: %v", keys)
	}
}
