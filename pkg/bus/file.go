/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package bus

import (
	"encoding/binary"

	"go.etcd.io/bbolt"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/log"
)

const (
	RegBucketName = "registers"
)

// File is a register file persisted in a bbolt database, so the board
// state survives daemon restarts. Keys are big-endian register
// addresses, values are single bytes. Unwritten registers read zero.
type File struct {
	db *bbolt.DB
}

var _ Store = &File{}

func OpenFile(path string) (*File, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(RegBucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &File{db: db}, nil
}

func (f *File) Close() error {
	return f.db.Close()
}

func uint16ToByte(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func (f *File) Read(addr uint16) byte {
	var value byte
	if err := f.db.View(func(tx *bbolt.Tx) error {
		valueBytes := tx.Bucket([]byte(RegBucketName)).Get(uint16ToByte(addr))
		if len(valueBytes) > 0 {
			value = valueBytes[0]
		}
		return nil
	}); err != nil {
		log.Error("Failed to read register 0x%04x: %s", addr, err)
		return 0
	}
	return value
}

func (f *File) Write(addr uint16, value byte) {
	if err := f.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(RegBucketName)).Put(uint16ToByte(addr), []byte{value})
	}); err != nil {
		log.Error("Failed to write register 0x%04x: %s", addr, err)
	}
}

func (f *File) Dump() (map[uint16]byte, error) {
	regs := make(map[uint16]byte)
	if err := f.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(RegBucketName)).ForEach(func(k, v []byte) error {
			if len(k) == 2 && len(v) == 1 {
				regs[binary.BigEndian.Uint16(k)] = v[0]
			}
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return regs, nil
}

// Restore replaces the whole register file with the given dump.
func (f *File) Restore(regs map[uint16]byte) error {
	return f.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(RegBucketName)); err != nil {
			return err
		}
		b, err := tx.CreateBucket([]byte(RegBucketName))
		if err != nil {
			return err
		}
		for addr, value := range regs {
			if err := b.Put(uint16ToByte(addr), []byte{value}); err != nil {
				return err
			}
		}
		return nil
	})
}
