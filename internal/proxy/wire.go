// Package proxy implements the recipe server (§4.2): a stateless UDP
// responder that answers RECIPE_REQ datagrams with the allocator's current
// c(K) for the requested key, feeding OnAccess on every request.
package proxy

import (
	"encoding/binary"

	"github.com/agar-cache/agar/pkg/errors"
)

const (
	msgRecipeReq byte = 1
	msgRecipeRep byte = 2

	maxKeyLen = 1<<16 - 1
)

type recipeRequest struct {
	key string
}

type recipeReply struct {
	key          string
	cachedBlocks int
}

// decodeRequest parses a length-prefixed RECIPE_REQ datagram. Unknown msgType
// or a malformed frame is reported as an error for the caller to drop.
func decodeRequest(buf []byte) (recipeRequest, error) {
	if len(buf) < 3 {
		return recipeRequest{}, errors.NewError(errors.ErrCodeConfig, "frame too short").
			WithComponent("proxy").WithOperation("decodeRequest")
	}
	if buf[0] != msgRecipeReq {
		return recipeRequest{}, errors.NewError(errors.ErrCodeConfig, "unknown msgType").
			WithComponent("proxy").WithOperation("decodeRequest").WithDetail("msgType", buf[0])
	}

	keyLen := int(binary.BigEndian.Uint16(buf[1:3]))
	if 3+keyLen > len(buf) {
		return recipeRequest{}, errors.NewError(errors.ErrCodeConfig, "keyLen exceeds frame").
			WithComponent("proxy").WithOperation("decodeRequest")
	}

	return recipeRequest{key: string(buf[3 : 3+keyLen])}, nil
}

// encodeReply serializes a RECIPE_REP datagram.
func encodeReply(r recipeReply) ([]byte, error) {
	if len(r.key) > maxKeyLen {
		return nil, errors.NewError(errors.ErrCodeConfig, "key too long to encode").
			WithComponent("proxy").WithOperation("encodeReply")
	}

	buf := make([]byte, 1+2+len(r.key)+2)
	buf[0] = msgRecipeRep
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(r.key)))
	copy(buf[3:3+len(r.key)], r.key)
	binary.BigEndian.PutUint16(buf[3+len(r.key):], uint16(r.cachedBlocks))
	return buf, nil
}

// encodeRequest serializes a RECIPE_REQ datagram (used by the client's proxy
// RPC adapter).
func encodeRequest(key string) ([]byte, error) {
	if len(key) > maxKeyLen {
		return nil, errors.NewError(errors.ErrCodeConfig, "key too long to encode").
			WithComponent("proxy").WithOperation("encodeRequest")
	}
	buf := make([]byte, 1+2+len(key))
	buf[0] = msgRecipeReq
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(key)))
	copy(buf[3:], key)
	return buf, nil
}

// decodeReply parses a RECIPE_REP datagram.
func decodeReply(buf []byte) (recipeReply, error) {
	if len(buf) < 3 {
		return recipeReply{}, errors.NewError(errors.ErrCodeConfig, "frame too short").
			WithComponent("proxy").WithOperation("decodeReply")
	}
	if buf[0] != msgRecipeRep {
		return recipeReply{}, errors.NewError(errors.ErrCodeConfig, "unknown msgType").
			WithComponent("proxy").WithOperation("decodeReply").WithDetail("msgType", buf[0])
	}

	keyLen := int(binary.BigEndian.Uint16(buf[1:3]))
	if 3+keyLen+2 > len(buf) {
		return recipeReply{}, errors.NewError(errors.ErrCodeConfig, "frame too short for keyLen").
			WithComponent("proxy").WithOperation("decodeReply")
	}

	key := string(buf[3 : 3+keyLen])
	cachedBlocks := int(binary.BigEndian.Uint16(buf[3+keyLen : 3+keyLen+2]))
	return recipeReply{key: key, cachedBlocks: cachedBlocks}, nil
}
