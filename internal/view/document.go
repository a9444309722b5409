package view

import (
	"sort"
	"sync"
)

// Sink 是渲染结果的唯一写入目标。每个片段 id 只由一个适配器写入。
type Sink interface {
	Set(id, html string)
	ScrollToBottom(id string)
	Remove(ids ...string)
}

// Fragment 是某个片段的当前内容。Version 在内容变化时递增，Scroll 在每次请求滚动时递增。
type Fragment struct {
	ID      string `json:"id"`
	HTML    string `json:"html"`
	Version uint64 `json:"version"`
	Scroll  uint64 `json:"scroll"`
}

// Document 保存所有片段，事件循环写入，HTTP handler 读取。
type Document struct {
	mu        sync.RWMutex
	fragments map[string]*Fragment
	writes    uint64
}

func NewDocument() *Document {
	return &Document{fragments: make(map[string]*Fragment)}
}

func (d *Document) Set(id, html string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes++
	f, ok := d.fragments[id]
	if !ok {
		d.fragments[id] = &Fragment{ID: id, HTML: html, Version: 1}
		return
	}
	if f.HTML == html {
		return
	}
	f.HTML = html
	f.Version++
}

func (d *Document) ScrollToBottom(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.fragments[id]; ok {
		f.Scroll++
	}
}

// Remove 删除片段，房间关闭后调用。
func (d *Document) Remove(ids ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		delete(d.fragments, id)
	}
}

func (d *Document) Get(id string) (Fragment, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f, ok := d.fragments[id]
	if !ok {
		return Fragment{}, false
	}
	return *f, true
}

func (d *Document) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.fragments))
	for id := range d.fragments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Writes 返回 Set 被调用的总次数，包括内容未变的写入。
func (d *Document) Writes() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.writes
}
