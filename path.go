package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Path 文件路径或MongoDB集合
type Path struct {
	File string
	DB   string
	Coll string
}

var fileExts = []string{".yaml", ".yml", ".json"}

// NewPath 解析{fspath}或{db}.{col}，空字符串返回nil
func NewPath(filePathOrColl string) (*Path, error) {
	// 检查filePathOrColl是否作为文件存在
	if _, err := os.Stat(filePathOrColl); err == nil {
		return &Path{
			File: filePathOrColl,
		}, nil
	}
	dbDotColl := strings.TrimSpace(filePathOrColl)
	if dbDotColl == "" {
		return nil, nil
	}
	// 尚不存在的输出文件
	if strings.ContainsRune(dbDotColl, filepath.Separator) || isFileExt(filepath.Ext(dbDotColl)) {
		return &Path{
			File: dbDotColl,
		}, nil
	}
	splitted := strings.Split(dbDotColl, ".")
	if len(splitted) != 2 || splitted[0] == "" || splitted[1] == "" {
		return nil, fmt.Errorf("dbDotColl is invalid: %s", dbDotColl)
	}
	return &Path{
		DB:   splitted[0],
		Coll: splitted[1],
	}, nil
}

func isFileExt(ext string) bool {
	for _, e := range fileExts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func (p *Path) IsFile() bool {
	return p.File != ""
}

func (p *Path) GetDb() string {
	return p.DB
}

func (p *Path) GetColl() string {
	return p.Coll
}

func (p *Path) String() string {
	if p.IsFile() {
		return p.File
	}
	return p.DB + "." + p.Coll
}
