package mantaray

import (
	"bytes"
	"encoding/binary"
	"math"

	jsoniter "github.com/json-iterator/go"
	"github.com/oneconcern/swarmtrie/pkg/bmt"
	"github.com/oneconcern/swarmtrie/pkg/encryption"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary

	version02Hash = bmt.Keccak256([]byte("mantaray:0.2"))[:versionHashSize]

	zeroKey = make([]byte, nodeObfuscationKeySize)
)

// IsManifest tells if some content starts like a serialized node
func IsManifest(data []byte) bool {
	if len(data) < nodeHeaderSize {
		return false
	}
	key := data[:nodeObfuscationKeySize]
	version := encryption.XorEncrypt(data[nodeObfuscationKeySize:nodeObfuscationKeySize+versionHashSize], key)
	return bytes.Equal(version, version02Hash)
}

// referenceSize is the size of all references serialized in the node
func (n *Node) referenceSize() (int, error) {
	size := n.refBytesSize
	check := func(ref []byte) error {
		if len(ref) == 0 {
			return nil
		}
		if size == 0 {
			size = len(ref)
		}
		if len(ref) != size {
			return ErrInvalidInput.WrapMessage("reference of size %d in a node with references of size %d", len(ref), size)
		}
		return nil
	}

	if err := check(n.entry); err != nil {
		return 0, err
	}
	for _, f := range n.forks {
		if f.node.ref == nil {
			return 0, ErrInvalidInput.WrapMessage("fork %q is not saved", f.prefix)
		}
		if err := check(f.node.ref); err != nil {
			return 0, err
		}
	}

	switch size {
	case 0:
		return swarm.HashSize, nil
	case swarm.HashSize, swarm.EncryptedReferenceSize:
		return size, nil
	default:
		return 0, ErrInvalidInput.WrapMessage("invalid reference size %d", size)
	}
}

// MarshalBinary serializes the node. All forks must be saved.
//
// Layout: obfuscation key | version hash | reference size | entry | forks bitmap | forks,
// everything after the key being obfuscated with it.
func (n *Node) MarshalBinary() ([]byte, error) {
	if !n.loaded {
		return nil, ErrNoLoader
	}
	refSize, err := n.referenceSize()
	if err != nil {
		return nil, err
	}

	key := n.obfuscationKey
	if key == nil {
		key = zeroKey
	}

	buf := make([]byte, nodeHeaderSize, nodeHeaderSize+refSize+forksIndexSize+len(n.forks)*(nodeForkPreReferenceSize+refSize))
	copy(buf, key)
	copy(buf[nodeObfuscationKeySize:], version02Hash)
	buf[nodeObfuscationKeySize+versionHashSize] = uint8(refSize)

	entry := make([]byte, refSize)
	copy(entry, n.entry)
	buf = append(buf, entry...)

	keys := n.sortedForkKeys()
	index := make([]byte, forksIndexSize)
	for _, k := range keys {
		index[k/8] |= 1 << (k % 8)
	}
	buf = append(buf, index...)

	for _, k := range keys {
		f, err := n.forks[k].bytes()
		if err != nil {
			return nil, err
		}
		buf = append(buf, f...)
	}

	copy(buf[nodeObfuscationKeySize:], encryption.XorEncrypt(buf[nodeObfuscationKeySize:], key))
	return buf, nil
}

// bytes serializes a fork: type | prefix length | prefix | reference | [metadata size | metadata]
func (f *fork) bytes() ([]byte, error) {
	r := make([]byte, nodeForkPreReferenceSize)
	r[0] = f.node.nodeType
	r[1] = uint8(len(f.prefix))
	copy(r[nodeForkHeaderSize:], f.prefix)
	r = append(r, f.node.ref...)

	if !f.node.IsWithMetadataType() {
		return r, nil
	}

	meta, err := json.Marshal(f.node.metadata)
	if err != nil {
		return nil, err
	}
	if rem := (len(meta) + nodeForkMetadataBytesSize) % nodeObfuscationKeySize; rem != 0 {
		meta = append(meta, bytes.Repeat([]byte{'\n'}, nodeObfuscationKeySize-rem)...)
	}
	if len(meta) > math.MaxUint16 {
		return nil, ErrMetadataTooLarge
	}
	size := make([]byte, nodeForkMetadataBytesSize)
	binary.BigEndian.PutUint16(size, uint16(len(meta)))
	r = append(r, size...)
	return append(r, meta...), nil
}

// UnmarshalBinary deserializes a node. Forks are left unloaded.
func (n *Node) UnmarshalBinary(data []byte) error {
	if len(data) < nodeHeaderSize {
		return ErrTooShort
	}

	key := append([]byte{}, data[:nodeObfuscationKeySize]...)
	plain := encryption.XorEncrypt(data[nodeObfuscationKeySize:], key)

	if !bytes.Equal(plain[:versionHashSize], version02Hash) {
		return ErrInvalidVersionHash
	}

	refSize := int(plain[versionHashSize])
	if refSize != swarm.HashSize && refSize != swarm.EncryptedReferenceSize {
		return ErrInvalidInput.WrapMessage("invalid reference size %d", refSize)
	}
	offset := versionHashSize + nodeRefBytesSize
	if len(plain) < offset+refSize+forksIndexSize {
		return ErrTooShort
	}

	n.obfuscationKey = key
	n.refBytesSize = refSize
	n.entry = nil
	n.nodeType = 0
	if entry := plain[offset : offset+refSize]; !bytes.Equal(entry, make([]byte, refSize)) {
		n.entry = append([]byte{}, entry...)
		n.makeValue()
	}
	offset += refSize

	index := plain[offset : offset+forksIndexSize]
	offset += forksIndexSize

	n.forks = make(map[byte]*fork)
	for i := 0; i < 256; i++ {
		if index[i/8]&(1<<(i%8)) == 0 {
			continue
		}
		if len(plain) < offset+nodeForkPreReferenceSize+refSize {
			return ErrTooShort.WrapMessage("fork %d", i)
		}
		nodeType := plain[offset]
		prefixLen := int(plain[offset+1])
		if prefixLen == 0 || prefixLen > nodePrefixMaxSize {
			return ErrInvalidInput.WrapMessage("invalid prefix length %d", prefixLen)
		}
		prefix := append([]byte{}, plain[offset+nodeForkHeaderSize:offset+nodeForkHeaderSize+prefixLen]...)
		offset += nodeForkPreReferenceSize

		child := NewNodeRef(append([]byte{}, plain[offset:offset+refSize]...))
		child.nodeType = nodeType
		child.refBytesSize = refSize
		offset += refSize

		if child.IsWithMetadataType() {
			if len(plain) < offset+nodeForkMetadataBytesSize {
				return ErrTooShort.WrapMessage("fork %d metadata", i)
			}
			size := int(binary.BigEndian.Uint16(plain[offset:]))
			offset += nodeForkMetadataBytesSize
			if len(plain) < offset+size {
				return ErrTooShort.WrapMessage("fork %d metadata", i)
			}
			if err := json.Unmarshal(plain[offset:offset+size], &child.metadata); err != nil {
				return ErrInvalidInput.Wrap(err)
			}
			offset += size
		}

		n.forks[byte(i)] = &fork{prefix: prefix, node: child}
	}
	if len(n.forks) > 0 {
		n.makeEdge()
	}
	n.loaded = true
	return nil
}
