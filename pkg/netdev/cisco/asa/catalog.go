package asa

import (
	"sort"

	"github.com/sshcollectorpro/netdev/pkg/netdev"
)

// 命令类型（命令表的逻辑键）
const (
	KindDelimiterUnprivileged = netdev.KindDelimiterUnprivileged
	KindDelimiterPrivileged   = netdev.KindDelimiterPrivileged
	KindPattern               = netdev.KindPattern
	KindDisablePaging         = netdev.KindDisablePaging
	KindPrivEnter             = netdev.KindPrivEnter
	KindPrivExit              = netdev.KindPrivExit
	KindConfigEnter           = netdev.KindConfigEnter
	KindConfigExit            = netdev.KindConfigExit
	KindConfigCheck           = netdev.KindConfigCheck
	KindCheckConfigMode       = netdev.KindCheckConfigMode
)

// Catalog ASA 命令表，构造后只读
type Catalog struct {
	entries map[string]string
}

// DefaultCatalog 返回 ASA 默认命令表
func DefaultCatalog() *Catalog {
	return &Catalog{entries: map[string]string{
		KindDelimiterUnprivileged: ">",
		KindDelimiterPrivileged:   "#",
		KindPattern:               `%s.*?(\(.*?\))?[%s|%s]`,
		KindDisablePaging:         "terminal pager 0",
		KindPrivEnter:             "enable",
		KindPrivExit:              "disable",
		KindConfigEnter:           "conf t",
		KindConfigExit:            "end",
		KindConfigCheck:           ")#",
		KindCheckConfigMode:       ")#",
	}}
}

// Lookup 按逻辑键返回命令字面量
func (c *Catalog) Lookup(kind string) (string, error) {
	v, ok := c.entries[kind]
	if !ok {
		return "", &UnknownCommandKindError{Kind: kind}
	}
	return v, nil
}

// MustLookup 用于内部固定调用点，未知键视为编程错误
func (c *Catalog) MustLookup(kind string) string {
	v, err := c.Lookup(kind)
	if err != nil {
		panic(err)
	}
	return v
}

// Kinds 返回全部逻辑键（已排序）
func (c *Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c.entries))
	for k := range c.entries {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Entries 返回命令表副本
func (c *Catalog) Entries() map[string]string {
	out := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Delimiters 返回非特权与特权提示符结束符
func (c *Catalog) Delimiters() []string {
	return []string{c.MustLookup(KindDelimiterUnprivileged), c.MustLookup(KindDelimiterPrivileged)}
}
