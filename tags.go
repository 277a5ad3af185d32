package envconf

import (
	"fmt"
	"reflect"
	"strings"
)

const (
	tagEnv     = "env"
	tagDefault = "envDefault"
)

// fieldTag is the parsed form of
//
//	env:"NAME,file,default,conv=json" envDefault:"literal"
type fieldTag struct {
	name        string
	skip        bool
	fromFile    bool
	zeroDefault bool
	converter   string
	hasDefault  bool
	defaultText string
}

func parseTag(f reflect.StructField) (fieldTag, error) {
	var tag fieldTag

	raw, ok := f.Tag.Lookup(tagEnv)
	if ok && strings.TrimSpace(raw) == "-" {
		tag.skip = true
		return tag, nil
	}

	parts := strings.Split(raw, ",")
	tag.name = strings.TrimSpace(parts[0])
	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		switch {
		case opt == "":
		case opt == "file":
			tag.fromFile = true
		case opt == "default":
			tag.zeroDefault = true
		case strings.HasPrefix(opt, "conv="):
			tag.converter = strings.TrimSpace(strings.TrimPrefix(opt, "conv="))
			if tag.converter == "" {
				return tag, fmt.Errorf("empty converter name in %s tag", tagEnv)
			}
		default:
			return tag, fmt.Errorf("unknown %s tag option %q", tagEnv, opt)
		}
	}

	tag.defaultText, tag.hasDefault = f.Tag.Lookup(tagDefault)
	if tag.hasDefault && tag.zeroDefault {
		return tag, fmt.Errorf("both %q option and %s tag given", "default", tagDefault)
	}
	return tag, nil
}
