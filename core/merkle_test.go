package core

import "testing"

func TestMerklePathRoundTrip(t *testing.T) {
	leaves := [][]byte{
		[]byte("tx0"), []byte("tx1"), []byte("tx2"), []byte("tx3"), []byte("tx5"),
	}

	for i := range leaves {
		i := i
		t.Run("", func(t *testing.T) {
			path, root, err := MerklePath(leaves, uint32(i))
			if err != nil {
				t.Fatalf("MerklePath failed: %v", err)
			}
			if !VerifyMerklePath(root, leaves[i], path, uint32(i)) {
				t.Fatalf("VerifyMerklePath failed for leaf %d", i)
			}
		})
	}
}

func TestMerklePathRejectsWrongLeaf(t *testing.T) {
	leaves := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}
	path, root, err := MerklePath(leaves, 0)
	if err != nil {
		t.Fatalf("MerklePath failed: %v", err)
	}
	if VerifyMerklePath(root, []byte("not-a"), path, 0) {
		t.Fatalf("expected verification to fail for a substituted leaf")
	}
}

func TestBuildMerkleTreeRejectsEmpty(t *testing.T) {
	if _, err := BuildMerkleTree(nil); err == nil {
		t.Fatalf("expected error for empty leaves")
	}
}

func TestMerklePathSingleLeaf(t *testing.T) {
	leaves := [][]byte{[]byte("only")}
	path, root, err := MerklePath(leaves, 0)
	if err != nil {
		t.Fatalf("MerklePath failed: %v", err)
	}
	if len(path) != 0 {
		t.Fatalf("expected no siblings for a single-leaf tree, got %d", len(path))
	}
	if !VerifyMerklePath(root, leaves[0], path, 0) {
		t.Fatalf("expected single-leaf root to verify")
	}
}
