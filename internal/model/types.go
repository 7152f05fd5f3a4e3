package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// StringList 以 JSON 数组存储的字符串列表。
// 反序列化时兼容数字元素（如 [0, 2]），统一转为字符串。
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	data, err := columnBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

func (l *StringList) UnmarshalJSON(data []byte) error {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(StringList, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(v))
		case nil:
			continue
		default:
			b, _ := json.Marshal(v)
			out = append(out, string(b))
		}
	}
	*l = out
	return nil
}

// ScoreMap 评分细则：名称 -> 权重或分数
type ScoreMap map[string]float64

func (m ScoreMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]float64(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *ScoreMap) Scan(value interface{}) error {
	data, err := columnBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*m = ScoreMap{}
		return nil
	}
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = raw
	return nil
}

func columnBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", value)
	}
}
