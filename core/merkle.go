package core

import (
	"bytes"
	"errors"
)

// BuildMerkleTree returns the level-by-level nodes of a Merkle tree built
// from the provided leaves, each hashed with DoubleSHA256. The last level
// contains the single root hash. Adapted from core/merkle_tree_operations.go,
// switched from single to double SHA-256 to match this chain's hash
// convention.
func BuildMerkleTree(leaves [][]byte) ([][][32]byte, error) {
	if len(leaves) == 0 {
		return nil, errors.New("merkle: no leaves")
	}
	level := make([][32]byte, len(leaves))
	for i, l := range leaves {
		level[i] = DoubleSHA256(l)
	}
	if len(level) > 1 && len(level)%2 == 1 {
		level = append(level, level[len(level)-1])
	}
	tree := [][][32]byte{level}
	for len(level) > 1 {
		next := make([][32]byte, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			pair := append(append([]byte{}, level[i][:]...), level[i+1][:]...)
			next[i/2] = DoubleSHA256(pair)
		}
		if len(next) > 1 && len(next)%2 == 1 {
			next = append(next, next[len(next)-1])
		}
		tree = append(tree, next)
		level = next
	}
	return tree, nil
}

// MerklePath returns the sibling hashes for the leaf at index, ordered
// from leaf level upwards, along with the tree's root.
func MerklePath(leaves [][]byte, index uint32) ([][]byte, [32]byte, error) {
	if len(leaves) == 0 {
		return nil, [32]byte{}, errors.New("merkle: no leaves")
	}
	if int(index) >= len(leaves) {
		return nil, [32]byte{}, errors.New("merkle: index out of range")
	}
	tree, err := BuildMerkleTree(leaves)
	if err != nil {
		return nil, [32]byte{}, err
	}
	path := make([][]byte, 0, len(tree)-1)
	idx := int(index)
	for i := 0; i < len(tree)-1; i++ {
		level := tree[i]
		if idx%2 == 0 {
			path = append(path, level[idx+1][:])
		} else {
			path = append(path, level[idx-1][:])
		}
		idx /= 2
	}
	root := tree[len(tree)-1][0]
	return path, root, nil
}

// VerifyMerklePath checks whether path reconstructs root for leaf at
// index. Siblings must be ordered from leaf level upwards.
func VerifyMerklePath(root [32]byte, leaf []byte, path [][]byte, index uint32) bool {
	hash := DoubleSHA256(leaf)
	for _, sibling := range path {
		var pair []byte
		if index%2 == 0 {
			pair = append(append([]byte{}, hash[:]...), sibling...)
		} else {
			pair = append(append([]byte{}, sibling...), hash[:]...)
		}
		hash = DoubleSHA256(pair)
		index /= 2
	}
	return bytes.Equal(hash[:], root[:])
}
