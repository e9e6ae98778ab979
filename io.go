package facemark

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Binary model layout, little endian throughout: a magic tag and
// version, the mean shape, then every stage as its coordinate pool
// followed by its trees. Trees are stored slot by slot in breadth-first
// order so the flat node arena round-trips without any pointer fixups;
// leaf displacements keep their exact float64 bit patterns.
const (
	modelMagic   = uint32(0x4b524d46) // "FMRK"
	modelVersion = uint32(1)

	// maxModelTreeDepth bounds the depth field accepted from a model
	// stream so a corrupt header cannot trigger a huge arena allocation.
	maxModelTreeDepth = 24
)

// Node slot markers of the serialized tree arena.
const (
	nodeAbsent = uint8(iota)
	nodeSplit
	nodeLeaf
)

// Save serializes the trained tracker to the given writer.
func (t *Tracker) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	header := []interface{}{
		modelMagic,
		modelVersion,
		uint32(len(t.meanShape)),
	}
	for _, v := range header {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := writeShape(bw, t.meanShape); err != nil {
		return err
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(t.stages))); err != nil {
		return err
	}
	for _, stage := range t.stages {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(stage.coords))); err != nil {
			return err
		}
		if err := writeShape(bw, stage.coords); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(stage.trees))); err != nil {
			return err
		}
		for _, tree := range stage.trees {
			if err := writeTree(bw, tree); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// SaveFile serializes the tracker to a model file.
func (t *Tracker) SaveFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating the model file")
	}
	defer file.Close()
	return t.Save(file)
}

// LoadTracker deserializes a tracker from the given reader.
func LoadTracker(r io.Reader) (*Tracker, error) {
	br := bufio.NewReader(r)

	var magic, version, numLandmarks uint32
	if err := readAll(br, &magic, &version, &numLandmarks); err != nil {
		return nil, err
	}
	if magic != modelMagic {
		return nil, errors.New("not a facemark model file")
	}
	if version != modelVersion {
		return nil, errors.Errorf("unsupported model version %d", version)
	}

	meanShape, err := readShape(br, int(numLandmarks))
	if err != nil {
		return nil, err
	}
	t := &Tracker{meanShape: meanShape}

	var numStages uint32
	if err := readAll(br, &numStages); err != nil {
		return nil, err
	}
	for s := uint32(0); s < numStages; s++ {
		var numCoords uint32
		if err := readAll(br, &numCoords); err != nil {
			return nil, err
		}
		coords, err := readShape(br, int(numCoords))
		if err != nil {
			return nil, err
		}

		var numTrees uint32
		if err := readAll(br, &numTrees); err != nil {
			return nil, err
		}
		stage := &Regressor{coords: coords}
		for k := uint32(0); k < numTrees; k++ {
			tree, err := readTree(br, int(numLandmarks), int(numCoords))
			if err != nil {
				return nil, err
			}
			stage.trees = append(stage.trees, tree)
		}
		t.stages = append(t.stages, stage)
	}
	return t, nil
}

// LoadTrackerFile deserializes a tracker from a model file.
func LoadTrackerFile(path string) (*Tracker, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening the model file")
	}
	defer file.Close()
	return LoadTracker(file)
}

func writeShape(w io.Writer, s []Point) error {
	buf := make([]float64, 0, 2*len(s))
	for _, p := range s {
		buf = append(buf, p.X, p.Y)
	}
	return binary.Write(w, binary.LittleEndian, buf)
}

func readShape(r io.Reader, n int) ([]Point, error) {
	buf := make([]float64, 2*n)
	if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
		return nil, err
	}
	s := make([]Point, n)
	for i := range s {
		s[i] = Point{X: buf[2*i], Y: buf[2*i+1]}
	}
	return s, nil
}

func writeTree(w io.Writer, t *Tree) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(t.depth)); err != nil {
		return err
	}

	// Slots below an early leaf are unreachable and carry no payload.
	present := make([]bool, len(t.nodes))
	present[0] = true

	for i := range t.nodes {
		if !present[i] {
			if err := binary.Write(w, binary.LittleEndian, nodeAbsent); err != nil {
				return err
			}
			continue
		}

		if t.nodes[i].mean != nil {
			if err := binary.Write(w, binary.LittleEndian, nodeLeaf); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, t.nodes[i].mean); err != nil {
				return err
			}
			continue
		}

		present[2*i+1] = true
		present[2*i+2] = true
		if err := binary.Write(w, binary.LittleEndian, nodeSplit); err != nil {
			return err
		}
		if err := writeSplit(w, t.nodes[i].split); err != nil {
			return err
		}
	}
	return nil
}

func readTree(r io.Reader, numLandmarks, numCoords int) (*Tree, error) {
	var depth uint32
	if err := readAll(r, &depth); err != nil {
		return nil, err
	}
	if depth > maxModelTreeDepth {
		return nil, errors.Errorf("corrupt model: tree depth %d exceeds the maximum of %d",
			depth, maxModelTreeDepth)
	}

	t := &Tree{
		depth: int(depth),
		nodes: make([]treeNode, (1<<uint(depth+1))-1),
	}

	// Mirror the writer's reachability bookkeeping: reachable slots must
	// carry a split or leaf marker, unreachable slots must be absent, and
	// splits cannot sit on the last arena level. This keeps a traversal of
	// the loaded tree inside the arena no matter what the stream claims.
	present := make([]bool, len(t.nodes))
	present[0] = true

	for i := range t.nodes {
		var flag uint8
		if err := readAll(r, &flag); err != nil {
			return nil, err
		}
		if !present[i] {
			if flag != nodeAbsent {
				return nil, errors.Errorf("corrupt model: marker %d at unreachable slot %d", flag, i)
			}
			continue
		}
		switch flag {
		case nodeLeaf:
			mean := make([]float64, 2*numLandmarks)
			if err := binary.Read(r, binary.LittleEndian, mean); err != nil {
				return nil, err
			}
			t.nodes[i].mean = mean
		case nodeSplit:
			if 2*i+2 >= len(t.nodes) {
				return nil, errors.Errorf("corrupt model: split marker at leaf level slot %d", i)
			}
			split, err := readSplit(r)
			if err != nil {
				return nil, err
			}
			if split.Idx1 >= numCoords || split.Idx2 >= numCoords {
				return nil, errors.Errorf("corrupt model: split indices %d,%d exceed the %d stage coordinates",
					split.Idx1, split.Idx2, numCoords)
			}
			t.nodes[i].split = split
			present[2*i+1] = true
			present[2*i+2] = true
		case nodeAbsent:
			return nil, errors.Errorf("corrupt model: absent marker at reachable slot %d", i)
		default:
			return nil, errors.Errorf("corrupt model: unknown node marker %d", flag)
		}
	}
	return t, nil
}

func writeSplit(w io.Writer, split SplitTest) error {
	for _, v := range []interface{}{uint32(split.Idx1), uint32(split.Idx2), split.Threshold} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func readSplit(r io.Reader) (SplitTest, error) {
	var idx1, idx2 uint32
	var threshold float64
	if err := readAll(r, &idx1, &idx2, &threshold); err != nil {
		return SplitTest{}, err
	}
	return SplitTest{Idx1: int(idx1), Idx2: int(idx2), Threshold: threshold}, nil
}

func readAll(r io.Reader, values ...interface{}) error {
	for _, v := range values {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}
