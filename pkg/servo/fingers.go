package servo

// fingerBits maps finger index to the bit it drives in a hand's nibble.
// The thumb (index 0) is not wired. The tables follow the harness wiring
// and are mirrored between hands.
var fingerBits = map[Side][FingerCount]int{
	//         thumb index middle ring pinky
	Right: {-1, 1, 2, 3, 0},
	Left:  {-1, 0, 3, 2, 1},
}

// FingerNibble packs finger extension state into the low 4 bits.
func FingerNibble(side Side, extended [FingerCount]bool) uint8 {
	bits, ok := fingerBits[side]
	if !ok {
		return 0
	}
	var nibble uint8
	for i, ext := range extended {
		if ext && bits[i] >= 0 {
			nibble |= 1 << bits[i]
		}
	}
	return nibble
}

// FingerByte returns the nibble at its position in the shared finger byte:
// the right hand occupies the high nibble, the left hand the low one.
func FingerByte(side Side, extended [FingerCount]bool) uint8 {
	nibble := FingerNibble(side, extended)
	if side == Right {
		return nibble << 4
	}
	return nibble
}

// CombineFingers merges the finger bytes of both hands.
func CombineFingers(cmds []ServoCommand) uint8 {
	var b uint8
	for _, c := range cmds {
		b |= c.FingerByte
	}
	return b
}

// AllFingersByte returns the byte with every wired finger of side set.
func AllFingersByte(side Side) uint8 {
	switch side {
	case Right:
		return 0xF0
	case Left:
		return 0x0F
	}
	return 0
}
