// Package store persists the artifacts cmd/preprocess computes once
// (the base network, its attribute dictionary, resolved turn restrictions,
// and each profile's contracted CH overlays) to a single binary file
// cmd/server loads at startup, so a production server never re-runs
// contraction.
package store

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"github.com/F0rt1s/routing/internal/ch"
	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/restriction"
)

const (
	magicBytes  = "RTESTORE"
	version     = uint32(1)
	maxVertices = 50_000_000
	maxEdges    = 200_000_000
)

// Meta is one entry of the road-attribute dictionary network.Graph.MetaID
// indexes into: the name/reference a route summary or UI would display.
type Meta struct {
	Name string
	Ref  string
}

// ProfileOverlay bundles the optional precomputed CH overlays for one
// profile name — exactly what engine.Config's VertexOverlay/EdgeOverlay
// maps need populated, without re-running ch.Contract at every server
// start. Either field may be nil; a profile with neither entry always
// uses the plain search kernels.
type ProfileOverlay struct {
	VertexOverlay *ch.Graph
	EdgeOverlay   *ch.Graph
}

// Snapshot is everything cmd/preprocess computes once and cmd/server loads
// at startup.
type Snapshot struct {
	Net          *network.Graph
	Meta         []Meta
	Restrictions []restriction.Restriction
	Profiles     map[string]ProfileOverlay
}

type fileHeader struct {
	Magic           [8]byte
	Version         uint32
	NumVertices     uint32
	NumEdges        uint32
	NumMeta         uint32
	NumRestrictions uint32
	NumProfiles     uint32
}

// WriteBinary serializes a Snapshot to path, via a temp file and atomic
// rename so a crash mid-write never leaves a corrupt file at path.
func WriteBinary(path string, snap *Snapshot) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	cw := &crc32Writer{w: f, hash: crc32.NewIEEE()}

	net := snap.Net
	hdr := fileHeader{
		Version:         version,
		NumVertices:     net.NumVertices,
		NumEdges:        net.NumEdges,
		NumMeta:         uint32(len(snap.Meta)),
		NumRestrictions: uint32(len(snap.Restrictions)),
		NumProfiles:     uint32(len(snap.Profiles)),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if err := writeNetwork(cw, net); err != nil {
		return fmt.Errorf("write network: %w", err)
	}
	if err := writeMeta(cw, snap.Meta); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	if err := writeRestrictions(cw, snap.Restrictions); err != nil {
		return fmt.Errorf("write restrictions: %w", err)
	}
	if err := writeProfiles(cw, snap.Profiles); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}

	checksum := cw.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadBinary deserializes a Snapshot from path.
func ReadBinary(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	cr := &crc32Reader{r: f, hash: crc32.NewIEEE()}

	var hdr fileHeader
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumVertices > maxVertices {
		return nil, fmt.Errorf("NumVertices %d exceeds limit %d", hdr.NumVertices, maxVertices)
	}
	if hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}

	net, err := readNetwork(cr, hdr)
	if err != nil {
		return nil, fmt.Errorf("read network: %w", err)
	}
	meta, err := readMeta(cr, int(hdr.NumMeta))
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	restrictions, err := readRestrictions(cr, int(hdr.NumRestrictions))
	if err != nil {
		return nil, fmt.Errorf("read restrictions: %w", err)
	}
	profiles, err := readProfiles(cr, int(hdr.NumProfiles))
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	expectedCRC := cr.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	if err := validateCSR(net.FwdFirstOut, net.FwdEdge, net.NumVertices, net.NumEdges); err != nil {
		return nil, fmt.Errorf("forward network CSR invalid: %w", err)
	}
	if err := validateCSR(net.BwdFirstOut, net.BwdEdge, net.NumVertices, net.NumEdges); err != nil {
		return nil, fmt.Errorf("backward network CSR invalid: %w", err)
	}

	return &Snapshot{Net: net, Meta: meta, Restrictions: restrictions, Profiles: profiles}, nil
}

func writeNetwork(w io.Writer, net *network.Graph) error {
	if err := writeFloat32Slice(w, net.VertexLat); err != nil {
		return err
	}
	if err := writeFloat32Slice(w, net.VertexLon); err != nil {
		return err
	}
	if err := writeUint32Slice(w, net.FwdFirstOut); err != nil {
		return err
	}
	if err := writeUint32Slice(w, net.FwdEdge); err != nil {
		return err
	}
	if err := writeUint32Slice(w, net.BwdFirstOut); err != nil {
		return err
	}
	if err := writeUint32Slice(w, net.BwdEdge); err != nil {
		return err
	}
	if err := writeUint32Slice(w, net.EdgeFrom); err != nil {
		return err
	}
	if err := writeUint32Slice(w, net.EdgeTo); err != nil {
		return err
	}
	if err := writeFloat64Slice(w, net.Distance); err != nil {
		return err
	}
	if err := writeUint16Slice(w, net.ProfileID); err != nil {
		return err
	}
	if err := writeUint32Slice(w, net.MetaID); err != nil {
		return err
	}
	if err := writeBoolSlice(w, net.DataInverted); err != nil {
		return err
	}
	if err := writeUint32Slice(w, net.ShapeFirstOut); err != nil {
		return err
	}
	if err := writeFloat64Slice(w, net.ShapeLat); err != nil {
		return err
	}
	return writeFloat64Slice(w, net.ShapeLon)
}

// firstOutLen mirrors Build's own convention: a CSR prefix-sum array is
// length n+1 for a non-empty graph, but BuildWithIDs leaves it nil
// (length 0) for the explicit len(edges)==0 case rather than the
// CSR-valid [0]. Reading must match whichever the writer actually wrote.
func firstOutLen(n uint32) int {
	if n == 0 {
		return 0
	}
	return int(n) + 1
}

func readNetwork(r io.Reader, hdr fileHeader) (*network.Graph, error) {
	n, m := hdr.NumVertices, hdr.NumEdges
	g := &network.Graph{NumVertices: n, NumEdges: m}

	var err error
	if g.VertexLat, err = readFloat32Slice(r, int(n)); err != nil {
		return nil, fmt.Errorf("VertexLat: %w", err)
	}
	if g.VertexLon, err = readFloat32Slice(r, int(n)); err != nil {
		return nil, fmt.Errorf("VertexLon: %w", err)
	}
	if g.FwdFirstOut, err = readUint32Slice(r, firstOutLen(n)); err != nil {
		return nil, fmt.Errorf("FwdFirstOut: %w", err)
	}
	if g.FwdEdge, err = readUint32Slice(r, int(m)); err != nil {
		return nil, fmt.Errorf("FwdEdge: %w", err)
	}
	if g.BwdFirstOut, err = readUint32Slice(r, firstOutLen(n)); err != nil {
		return nil, fmt.Errorf("BwdFirstOut: %w", err)
	}
	if g.BwdEdge, err = readUint32Slice(r, int(m)); err != nil {
		return nil, fmt.Errorf("BwdEdge: %w", err)
	}
	if g.EdgeFrom, err = readUint32Slice(r, int(m)); err != nil {
		return nil, fmt.Errorf("EdgeFrom: %w", err)
	}
	if g.EdgeTo, err = readUint32Slice(r, int(m)); err != nil {
		return nil, fmt.Errorf("EdgeTo: %w", err)
	}
	if g.Distance, err = readFloat64Slice(r, int(m)); err != nil {
		return nil, fmt.Errorf("Distance: %w", err)
	}
	if g.ProfileID, err = readUint16Slice(r, int(m)); err != nil {
		return nil, fmt.Errorf("ProfileID: %w", err)
	}
	if g.MetaID, err = readUint32Slice(r, int(m)); err != nil {
		return nil, fmt.Errorf("MetaID: %w", err)
	}
	if g.DataInverted, err = readBoolSlice(r, int(m)); err != nil {
		return nil, fmt.Errorf("DataInverted: %w", err)
	}
	if g.ShapeFirstOut, err = readUint32Slice(r, firstOutLen(m)); err != nil {
		return nil, fmt.Errorf("ShapeFirstOut: %w", err)
	}
	numShapePoints := 0
	if len(g.ShapeFirstOut) > 0 {
		numShapePoints = int(g.ShapeFirstOut[len(g.ShapeFirstOut)-1])
	}
	if g.ShapeLat, err = readFloat64Slice(r, numShapePoints); err != nil {
		return nil, fmt.Errorf("ShapeLat: %w", err)
	}
	if g.ShapeLon, err = readFloat64Slice(r, numShapePoints); err != nil {
		return nil, fmt.Errorf("ShapeLon: %w", err)
	}
	return g, nil
}

func writeMeta(w io.Writer, meta []Meta) error {
	for _, m := range meta {
		if err := writeString(w, m.Name); err != nil {
			return err
		}
		if err := writeString(w, m.Ref); err != nil {
			return err
		}
	}
	return nil
}

func readMeta(r io.Reader, n int) ([]Meta, error) {
	if n == 0 {
		return nil, nil
	}
	out := make([]Meta, n)
	for i := range out {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		ref, err := readString(r)
		if err != nil {
			return nil, err
		}
		out[i] = Meta{Name: name, Ref: ref}
	}
	return out, nil
}

func writeRestrictions(w io.Writer, rs []restriction.Restriction) error {
	for _, r := range rs {
		if err := writeLenPrefixedUint32(w, r.Vertices); err != nil {
			return err
		}
	}
	return nil
}

func readRestrictions(r io.Reader, n int) ([]restriction.Restriction, error) {
	if n == 0 {
		return nil, nil
	}
	out := make([]restriction.Restriction, n)
	for i := range out {
		verts, err := readLenPrefixedUint32(r)
		if err != nil {
			return nil, err
		}
		out[i] = restriction.Restriction{Vertices: verts}
	}
	return out, nil
}

func writeProfiles(w io.Writer, profiles map[string]ProfileOverlay) error {
	for name, overlay := range profiles {
		if err := writeString(w, name); err != nil {
			return err
		}
		if err := writeOptionalCHGraph(w, overlay.VertexOverlay); err != nil {
			return err
		}
		if err := writeOptionalCHGraph(w, overlay.EdgeOverlay); err != nil {
			return err
		}
	}
	return nil
}

func readProfiles(r io.Reader, n int) (map[string]ProfileOverlay, error) {
	if n == 0 {
		return nil, nil
	}
	out := make(map[string]ProfileOverlay, n)
	for i := 0; i < n; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		vertexOverlay, err := readOptionalCHGraph(r)
		if err != nil {
			return nil, fmt.Errorf("profile %q vertex overlay: %w", name, err)
		}
		edgeOverlay, err := readOptionalCHGraph(r)
		if err != nil {
			return nil, fmt.Errorf("profile %q edge overlay: %w", name, err)
		}
		out[name] = ProfileOverlay{VertexOverlay: vertexOverlay, EdgeOverlay: edgeOverlay}
	}
	return out, nil
}

func writeOptionalCHGraph(w io.Writer, g *ch.Graph) error {
	if g == nil {
		_, err := w.Write([]byte{0})
		return err
	}
	if _, err := w.Write([]byte{1}); err != nil {
		return err
	}
	return writeCHGraph(w, g)
}

func readOptionalCHGraph(r io.Reader) (*ch.Graph, error) {
	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return nil, err
	}
	if flag[0] == 0 {
		return nil, nil
	}
	return readCHGraph(r)
}

func writeCHGraph(w io.Writer, g *ch.Graph) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(g.NumNodes)); err != nil {
		return err
	}
	if err := writeUint32Slice(w, g.Rank); err != nil {
		return err
	}
	if err := writeUint32Slice(w, g.FwdFirstOut); err != nil {
		return err
	}
	if err := writeLenPrefixedUint32(w, g.FwdHead); err != nil {
		return err
	}
	if err := writeFloat64Slice(w, g.FwdWeight); err != nil {
		return err
	}
	if err := writeInt32Slice(w, g.FwdMiddle); err != nil {
		return err
	}
	if err := writeUint32Slice(w, g.BwdFirstOut); err != nil {
		return err
	}
	if err := writeLenPrefixedUint32(w, g.BwdHead); err != nil {
		return err
	}
	if err := writeFloat64Slice(w, g.BwdWeight); err != nil {
		return err
	}
	return writeInt32Slice(w, g.BwdMiddle)
}

func readCHGraph(r io.Reader) (*ch.Graph, error) {
	var numNodes uint32
	if err := binary.Read(r, binary.LittleEndian, &numNodes); err != nil {
		return nil, err
	}
	g := &ch.Graph{NumNodes: numNodes}

	var err error
	if g.Rank, err = readUint32Slice(r, int(numNodes)); err != nil {
		return nil, fmt.Errorf("Rank: %w", err)
	}
	if g.FwdFirstOut, err = readUint32Slice(r, int(numNodes)+1); err != nil {
		return nil, fmt.Errorf("FwdFirstOut: %w", err)
	}
	if g.FwdHead, err = readLenPrefixedUint32(r); err != nil {
		return nil, fmt.Errorf("FwdHead: %w", err)
	}
	if g.FwdWeight, err = readFloat64Slice(r, len(g.FwdHead)); err != nil {
		return nil, fmt.Errorf("FwdWeight: %w", err)
	}
	if g.FwdMiddle, err = readInt32Slice(r, len(g.FwdHead)); err != nil {
		return nil, fmt.Errorf("FwdMiddle: %w", err)
	}
	if g.BwdFirstOut, err = readUint32Slice(r, int(numNodes)+1); err != nil {
		return nil, fmt.Errorf("BwdFirstOut: %w", err)
	}
	if g.BwdHead, err = readLenPrefixedUint32(r); err != nil {
		return nil, fmt.Errorf("BwdHead: %w", err)
	}
	if g.BwdWeight, err = readFloat64Slice(r, len(g.BwdHead)); err != nil {
		return nil, fmt.Errorf("BwdWeight: %w", err)
	}
	if g.BwdMiddle, err = readInt32Slice(r, len(g.BwdHead)); err != nil {
		return nil, fmt.Errorf("BwdMiddle: %w", err)
	}
	return g, nil
}

// validateCSR checks the standard CSR invariants: FirstOut is monotonic,
// its last entry equals the edge count, and every adjacency slot holds a
// valid vertex id.
func validateCSR(firstOut, edgeSlot []uint32, numVertices, numEdges uint32) error {
	if numVertices == 0 {
		return nil
	}
	if uint32(len(firstOut)) != numVertices+1 {
		return fmt.Errorf("FirstOut length %d != NumVertices+1 %d", len(firstOut), numVertices+1)
	}
	if firstOut[numVertices] != numEdges {
		return fmt.Errorf("FirstOut[NumVertices]=%d != NumEdges=%d", firstOut[numVertices], numEdges)
	}
	for i := uint32(1); i <= numVertices; i++ {
		if firstOut[i] < firstOut[i-1] {
			return fmt.Errorf("FirstOut not monotonic at %d: %d < %d", i, firstOut[i], firstOut[i-1])
		}
	}
	if uint32(len(edgeSlot)) != numEdges {
		return fmt.Errorf("edge slot length %d != NumEdges %d", len(edgeSlot), numEdges)
	}
	return nil
}

// Zero-copy numeric slice I/O, matching the teacher's unsafe.Slice
// approach for fixed-width array sections.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeInt32Slice(w io.Writer, s []int32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeUint16Slice(w io.Writer, s []uint16) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*2)
	_, err := w.Write(b)
	return err
}

func writeFloat32Slice(w io.Writer, s []float32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

// writeBoolSlice packs one byte per entry; bool isn't a fixed-width
// numeric type the unsafe.Slice trick above applies to portably, so this
// one stays a plain loop.
func writeBoolSlice(w io.Writer, s []bool) error {
	if len(s) == 0 {
		return nil
	}
	buf := make([]byte, len(s))
	for i, b := range s {
		if b {
			buf[i] = 1
		}
	}
	_, err := w.Write(buf)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readInt32Slice(r io.Reader, n int) ([]int32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]int32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readUint16Slice(r io.Reader, n int) ([]uint16, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint16, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*2)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat32Slice(r io.Reader, n int) ([]float32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readBoolSlice(r io.Reader, n int) ([]bool, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	s := make([]bool, n)
	for i, b := range buf {
		s[i] = b != 0
	}
	return s, nil
}

func writeLenPrefixedUint32(w io.Writer, s []uint32) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	return writeUint32Slice(w, s)
}

func readLenPrefixedUint32(r io.Reader) ([]uint32, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	return readUint32Slice(r, int(n))
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// CRC32 wrapping writers/readers, matching the teacher's checksum-trailer
// pattern.

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
