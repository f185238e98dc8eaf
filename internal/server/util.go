package server

import (
	"crypto/rand"
	"io"

	"chaos-room/internal/protocol"
)

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Bytes at or above this are discarded so every symbol is equally likely.
const roomCodeByteLimit = 256 - 256%len(roomCodeAlphabet)

func newRoomCode() string {
	code, err := readRoomCode(rand.Reader)
	if err != nil {
		return "AAAAA"
	}
	return code
}

func readRoomCode(r io.Reader) (string, error) {
	code := make([]byte, 0, protocol.RoomCodeLength)
	buf := make([]byte, protocol.RoomCodeLength*2)
	for len(code) < protocol.RoomCodeLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= roomCodeByteLimit {
				continue
			}
			code = append(code, roomCodeAlphabet[int(b)%len(roomCodeAlphabet)])
			if len(code) == protocol.RoomCodeLength {
				break
			}
		}
	}
	return string(code), nil
}
