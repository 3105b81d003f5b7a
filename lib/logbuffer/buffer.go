// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logbuffer

import (
	"sync"

	"github.com/bureau-foundation/logrelay/lib/logrecord"
)

// DefaultCapacity is the number of records retained when the
// configuration does not say otherwise.
const DefaultCapacity = 10000

// Buffer is a fixed-capacity FIFO of log records.
//
// All methods are safe for concurrent use.
type Buffer struct {
	mutex    sync.RWMutex
	records  []logrecord.Record
	capacity int
	// head is the ring index of the oldest retained record.
	head int
	// length is the number of retained records (0 to capacity).
	length int
	// totalAppended counts every record ever appended, including
	// evicted and cleared ones.
	totalAppended uint64
}

// New creates a buffer that retains at most capacity records. Panics
// if capacity is not positive.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		panic("logbuffer: capacity must be positive")
	}
	return &Buffer{
		records:  make([]logrecord.Record, capacity),
		capacity: capacity,
	}
}

// Append adds a record at the tail. When the buffer is full the head
// record is evicted to make room.
func (buffer *Buffer) Append(record logrecord.Record) {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()

	if buffer.length < buffer.capacity {
		buffer.records[(buffer.head+buffer.length)%buffer.capacity] = record
		buffer.length++
	} else {
		buffer.records[buffer.head] = record
		buffer.head = (buffer.head + 1) % buffer.capacity
	}
	buffer.totalAppended++
}

// Recent returns the last min(count, Count()) records in arrival
// order. A count of zero or less returns an empty slice.
func (buffer *Buffer) Recent(count int) []logrecord.Record {
	buffer.mutex.RLock()
	defer buffer.mutex.RUnlock()

	if count <= 0 {
		return []logrecord.Record{}
	}
	if count > buffer.length {
		count = buffer.length
	}
	return buffer.copyLocked(buffer.length-count, count)
}

// All returns the records matching filter in arrival order. The zero
// Filter returns the whole buffer.
func (buffer *Buffer) All(filter Filter) []logrecord.Record {
	buffer.mutex.RLock()
	snapshot := buffer.copyLocked(0, buffer.length)
	buffer.mutex.RUnlock()

	return filter.Apply(snapshot)
}

// Clear removes every record and returns how many were removed.
func (buffer *Buffer) Clear() int {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()

	cleared := buffer.length
	clear(buffer.records)
	buffer.head = 0
	buffer.length = 0
	return cleared
}

// Count returns the number of records currently retained.
func (buffer *Buffer) Count() int {
	buffer.mutex.RLock()
	defer buffer.mutex.RUnlock()
	return buffer.length
}

// Capacity returns the maximum number of retained records.
func (buffer *Buffer) Capacity() int {
	return buffer.capacity
}

// TotalAppended returns the number of records ever appended.
func (buffer *Buffer) TotalAppended() uint64 {
	buffer.mutex.RLock()
	defer buffer.mutex.RUnlock()
	return buffer.totalAppended
}

// copyLocked copies count records starting at logical position start
// (0 is the oldest). Caller holds at least the read lock.
func (buffer *Buffer) copyLocked(start, count int) []logrecord.Record {
	result := make([]logrecord.Record, count)
	first := (buffer.head + start) % buffer.capacity
	copied := copy(result, buffer.records[first:min(first+count, buffer.capacity)])
	copy(result[copied:], buffer.records[:count-copied])
	return result
}
