// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIsDeterministicAndOrderSensitive(t *testing.T) {
	a := Key("root", "type", "1.0")
	b := Key("root", "type", "1.0")
	c := Key("type", "root", "1.0")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func runStoreContract(t *testing.T, store Store) {
	t.Helper()

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put("k1", []byte("hello"), 0))
	val, err := store.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), val)

	require.NoError(t, store.Delete("k1"))
	_, err = store.Get("k1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestDiskStoreContract(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	runStoreContract(t, store)
}

func TestMemoryStoreExpiresEntries(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put("k", []byte("v"), 1*time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := store.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStoreExpiresEntries(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put("k", []byte("v"), 1*time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err = store.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	store1, err := NewDiskStore(dir)
	require.NoError(t, err)
	require.NoError(t, store1.Put("k", []byte("persisted"), 0))

	store2, err := NewDiskStore(dir)
	require.NoError(t, err)
	val, err := store2.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), val)
}

func TestDiskStoreCreatesRootDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	store, err := NewDiskStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put("k", []byte("v"), 0))

	val, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
}
