package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	MaxPlayers     = 4  // 最多4个座位
	PawnsPerPlayer = 4  // 每人4枚棋子
	HomeLaneLen    = 6  // Home 路径长度
	FinishIndex    = 5  // Home 路径终点
	NoIndex        = -1 // 当前区域不使用的坐标
)

// Board 棋盘拓扑, 由外部提供, 只读
type Board interface {
	RingSize() int32
	EntryCell(color int32) int32     // 出基地后的第一格
	HomeEntryCell(color int32) int32 // 进入 Home 路径前的最后一格
	IsSafe(cell int32) bool
}

// StaticBoard 固定拓扑, 可从 yaml 加载
type StaticBoard struct {
	Ring        int32   `yaml:"ring_size"`
	Entries     []int32 `yaml:"entry_cells"`
	HomeEntries []int32 `yaml:"home_entry_cells"`
	SafeCells   []int32 `yaml:"safe_cells"`

	safe map[int32]struct{}
}

// DefaultBoard 标准 52 格棋盘
func DefaultBoard() *StaticBoard {
	b := &StaticBoard{
		Ring:        52,
		Entries:     []int32{0, 13, 26, 39},
		HomeEntries: []int32{50, 11, 24, 37},
		SafeCells:   []int32{0, 8, 13, 21, 26, 34, 39, 47},
	}
	b.index()
	return b
}

// LoadBoard 从 yaml 文件加载
func LoadBoard(path string) (*StaticBoard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read board %q: %w", path, err)
	}
	return ParseBoard(data)
}

func ParseBoard(data []byte) (*StaticBoard, error) {
	b := &StaticBoard{}
	if err := yaml.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("parse board: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	b.index()
	return b, nil
}

func (b *StaticBoard) Validate() error {
	if b.Ring <= 0 {
		return fmt.Errorf("board: invalid ring size %d", b.Ring)
	}
	if len(b.Entries) != MaxPlayers || len(b.HomeEntries) != MaxPlayers {
		return fmt.Errorf("board: need %d entry and home-entry cells, got %d/%d",
			MaxPlayers, len(b.Entries), len(b.HomeEntries))
	}
	cells := append(append(append([]int32{}, b.Entries...), b.HomeEntries...), b.SafeCells...)
	for _, c := range cells {
		if c < 0 || c >= b.Ring {
			return fmt.Errorf("board: cell %d outside ring [0,%d)", c, b.Ring)
		}
	}
	return nil
}

func (b *StaticBoard) index() {
	b.safe = make(map[int32]struct{}, len(b.SafeCells))
	for _, c := range b.SafeCells {
		b.safe[c] = struct{}{}
	}
}

func (b *StaticBoard) RingSize() int32                 { return b.Ring }
func (b *StaticBoard) EntryCell(color int32) int32     { return b.Entries[color] }
func (b *StaticBoard) HomeEntryCell(color int32) int32 { return b.HomeEntries[color] }

func (b *StaticBoard) IsSafe(cell int32) bool {
	_, ok := b.safe[cell]
	return ok
}
