package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbschat/gateway/internal/store"
)

// Directory resolves and creates rooms. Creation is atomic with respect to
// concurrent lookups and creates for the same ID: the store's primary-key
// constraint on a single-writer handle decides exactly one winner.
type Directory struct {
	rooms store.RoomStore
}

// NewDirectory creates a directory over the given room store.
func NewDirectory(rooms store.RoomStore) *Directory {
	return &Directory{rooms: rooms}
}

// Room resolves an existing room. Returns ErrRoomNotFound if absent.
func (d *Directory) Room(ctx context.Context, roomID string) (*store.Room, error) {
	room, err := d.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrRoomNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve room: %w", err)
	}
	return room, nil
}

// Exists reports whether a room exists.
func (d *Directory) Exists(ctx context.Context, roomID string) (bool, error) {
	_, err := d.Room(ctx, roomID)
	if errors.Is(err, ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create records a new room. The creator is always the authenticated
// identity of the requester. Returns ErrRoomExists when the ID is taken.
func (d *Directory) Create(ctx context.Context, roomID, creator string) (*store.Room, error) {
	room, err := d.rooms.CreateRoom(ctx, roomID, creator)
	if errors.Is(err, store.ErrRoomExists) {
		return nil, ErrRoomExists
	}
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	return room, nil
}

// Creator resolves the recorded creator of a room.
func (d *Directory) Creator(ctx context.Context, roomID string) (string, error) {
	room, err := d.Room(ctx, roomID)
	if err != nil {
		return "", err
	}
	return room.Creator, nil
}
