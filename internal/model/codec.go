package model

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	PawnFieldSep  = ":"
	PawnRecordSep = ";"
)

// PawnRecord 单枚棋子的序列化记录 id:zone:mainIndex:homeIndex:isInHomeLane:isFinished
type PawnRecord struct {
	ID         int32
	Zone       PawnZone
	MainIndex  int32
	HomeIndex  int32
	InHomeLane bool
	Finished   bool
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// EncodePawns 序列化全部棋子
func EncodePawns(pawns []*Pawn) string {
	records := make([]string, 0, len(pawns))
	for _, p := range pawns {
		records = append(records, strings.Join([]string{
			strconv.Itoa(int(p.ID())),
			strconv.Itoa(int(p.Zone())),
			strconv.Itoa(int(p.MainIndex())),
			strconv.Itoa(int(p.HomeIndex())),
			boolFlag(p.InHomeLane()),
			boolFlag(p.IsFinished()),
		}, PawnFieldSep))
	}
	return strings.Join(records, PawnRecordSep)
}

// DecodePawns 解析序列化字符串, 仅做格式校验
func DecodePawns(encoded string) ([]PawnRecord, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}
	parts := strings.Split(encoded, PawnRecordSep)
	out := make([]PawnRecord, 0, len(parts))
	for _, part := range parts {
		fields := strings.Split(part, PawnFieldSep)
		if len(fields) != 6 {
			return nil, fmt.Errorf("pawn record %q: want 6 fields, got %d", part, len(fields))
		}
		var nums [6]int64
		for i, f := range fields {
			v, err := strconv.ParseInt(f, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("pawn record %q: field %d: %w", part, i, err)
			}
			nums[i] = v
		}
		rec := PawnRecord{
			ID:         int32(nums[0]),
			Zone:       PawnZone(nums[1]),
			MainIndex:  int32(nums[2]),
			HomeIndex:  int32(nums[3]),
			InHomeLane: nums[4] == 1,
			Finished:   nums[5] == 1,
		}
		if rec.Finished != (rec.Zone == ZoneFinished) {
			return nil, fmt.Errorf("pawn record %q: finished flag disagrees with zone", part)
		}
		if rec.InHomeLane != (rec.Zone == ZoneHomeLane || rec.Zone == ZoneFinished) {
			return nil, fmt.Errorf("pawn record %q: home-lane flag disagrees with zone", part)
		}
		out = append(out, rec)
	}
	return out, nil
}

// RestorePawns 按记录重建全部棋子位置. 记录须覆盖每个棋子且恰好一次,
// 任一记录非法时不做任何修改
func (s *MatchState) RestorePawns(encoded string, ring int32) error {
	records, err := DecodePawns(encoded)
	if err != nil {
		return err
	}
	if len(records) != len(s.Pawns) {
		return fmt.Errorf("pawn records: got %d, match has %d pawns", len(records), len(s.Pawns))
	}
	next := make([]*Pawn, len(s.Pawns))
	for i, p := range s.Pawns {
		next[i] = p.clone()
	}
	seen := make([]bool, len(next))
	for _, rec := range records {
		if rec.ID < 0 || int(rec.ID) >= len(next) {
			return fmt.Errorf("pawn record: unknown pawn %d", rec.ID)
		}
		if seen[rec.ID] {
			return fmt.Errorf("pawn record: duplicate pawn %d", rec.ID)
		}
		seen[rec.ID] = true
		if err := next[rec.ID].restore(rec.Zone, rec.MainIndex, rec.HomeIndex, ring); err != nil {
			return err
		}
	}
	for i, p := range next {
		*s.Pawns[i] = *p
	}
	return nil
}
