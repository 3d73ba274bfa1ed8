//----------------------------------------------------------------------
// This file is part of picobeat.
// Copyright (C) 2024-present Bernd Fix   >Y<
//
// picobeat is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// picobeat is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

package picobeat

import (
	"context"
	"errors"
	"net"
	"path"
	"sort"
	"strings"

	"git.sr.ht/~moody/ninep"
)

// Error codes
var (
	errNoRoot = errors.New("no root directory")
	errNoFile = errors.New("no such file or directory")
	errNoDir  = errors.New("not a directory")
	errNoAbs  = errors.New("no absolute path")
	errExists = errors.New("file exists")
)

//----------------------------------------------------------------------

// Entry in the namespace (file or directory)
type Entry struct {
	ref      *ninep.Dir        // 9p reference
	children map[string]*Entry // list of children (for folders) or nil
	file     File              // file implementation or nil (for folders)
}

// IsDir returns true for directories
func (e *Entry) IsDir() bool {
	return e.children != nil
}

// Name of the entry
func (e *Entry) Name() string {
	return e.ref.Name
}

// Read file content
func (e *Entry) Read() ([]byte, error) {
	if e.file == nil {
		return nil, errNoFile
	}
	return e.file.Read()
}

//----------------------------------------------------------------------

// Namespace is a read-only file tree served over 9P. It is built once
// before serving starts; afterwards only file content changes.
type Namespace struct {
	ninep.NopFS                   // use default handlers where needed
	user, group string            // owner of all entries
	dict        map[uint64]*Entry // map Qid.Path to filesystem entry
	nextId      uint64            // next Qid.Path
}

// NewNamespace creates an empty namespace with a root directory.
func NewNamespace(user, group string) *Namespace {
	ns := new(Namespace)
	ns.user, ns.group = user, group
	ns.dict = make(map[uint64]*Entry)
	ns.add(ns.newEntry("/", 0555, nil))
	return ns
}

// Root directory
func (ns *Namespace) Root() *Entry {
	return ns.dict[0]
}

// NewFile adds a file at the absolute path p.
func (ns *Namespace) NewFile(p string, perm uint32, impl File) error {
	if impl == nil {
		return errNoFile
	}
	return ns.create(p, perm, impl)
}

// NewDir adds a directory at the absolute path p.
func (ns *Namespace) NewDir(p string, perm uint32) error {
	return ns.create(p, perm, nil)
}

func (ns *Namespace) create(p string, perm uint32, impl File) error {
	dir, name := path.Split(path.Clean(p))
	if len(name) == 0 {
		return errExists
	}
	parent, err := ns.Get(dir)
	if err != nil {
		return err
	}
	if !parent.IsDir() {
		return errNoDir
	}
	if _, ok := parent.children[name]; ok {
		return errExists
	}
	e := ns.newEntry(name, perm, impl)
	parent.children[name] = e
	ns.add(e)
	return nil
}

func (ns *Namespace) newEntry(name string, perm uint32, impl File) *Entry {
	e := new(Entry)
	kind := ninep.QTFile
	if impl == nil {
		kind = ninep.QTDir
		e.children = make(map[string]*Entry)
		perm |= ninep.DMDir
	} else {
		e.file = impl
	}
	e.ref = &ninep.Dir{
		Qid: ninep.Qid{
			Path: ns.nextId,
			Vers: 0,
			Type: byte(kind),
		},
		Name: name,
		Mode: perm,
		Uid:  ns.user,
		Gid:  ns.group,
		Muid: ns.user,
	}
	ns.nextId++
	return e
}

func (ns *Namespace) add(e *Entry) {
	ns.dict[e.ref.Path] = e
}

// Get entry for absolute path.
func (ns *Namespace) Get(p string) (*Entry, error) {
	if len(p) == 0 || p[0] != '/' {
		return nil, errNoAbs
	}
	curr := ns.Root()
	for _, label := range strings.Split(p[1:], "/") {
		if len(label) == 0 {
			continue
		}
		if !curr.IsDir() {
			return nil, errNoDir
		}
		next, ok := curr.children[label]
		if !ok {
			return nil, errNoFile
		}
		curr = next
	}
	return curr, nil
}

// ServeListener accepts 9P connections on lst until ctx is done.
func (ns *Namespace) ServeListener(ctx context.Context, lst net.Listener, log Logger) error {
	go func() {
		<-ctx.Done()
		lst.Close()
	}()
	for {
		c, err := lst.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("diagnostics accept failed", Err(err))
			continue
		}
		srv := ninep.NewSrv(func() ninep.FS { return ns })
		go func() {
			defer c.Close()
			srv.ServeIO(c, c)
		}()
	}
}

//----------------------------------------------------------------------
// 9p handlers
//----------------------------------------------------------------------

// Attach to the namespace root.
func (ns *Namespace) Attach(t *ninep.Tattach) {
	if e, ok := ns.dict[0]; ok {
		t.Respond(&e.ref.Qid)
	} else {
		t.Err(errNoRoot)
	}
}

// Walk to a named child.
func (ns *Namespace) Walk(cur *ninep.Qid, next string) *ninep.Qid {
	e, ok := ns.dict[cur.Path]
	if !ok || !e.IsDir() {
		return nil
	}
	if c, ok := e.children[next]; ok {
		return &c.ref.Qid
	}
	return nil
}

// Open file or directory.
func (ns *Namespace) Open(t *ninep.Topen, q *ninep.Qid) {
	t.Respond(q, 8192)
}

// Read file content or directory listing.
func (ns *Namespace) Read(t *ninep.Tread, q *ninep.Qid) {
	e, ok := ns.dict[q.Path]
	if !ok {
		t.Err(errNoFile)
		return
	}
	if e.IsDir() {
		names := make([]string, 0, len(e.children))
		for name := range e.children {
			names = append(names, name)
		}
		sort.Strings(names)
		kids := make([]ninep.Dir, 0, len(names))
		for _, name := range names {
			kids = append(kids, *e.children[name].ref)
		}
		ninep.ReadDir(t, kids)
		return
	}
	data, err := e.file.Read()
	if err != nil {
		t.Err(err)
	} else {
		ninep.ReadBuf(t, data)
	}
}

// Stat returns entry information.
func (ns *Namespace) Stat(t *ninep.Tstat, q *ninep.Qid) {
	e, ok := ns.dict[q.Path]
	if !ok {
		t.Err(errNoFile)
	} else {
		t.Respond(e.ref)
	}
}
