package config

import (
	"fmt"
	"os"
	"strconv"
)

// GetEnv 读取环境变量并按默认值的类型解析，未设置时返回默认值
func GetEnv[T any](key string, defaultValue T) (T, error) {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}

	var err error
	var parsed any

	switch any(defaultValue).(type) {
	case string:
		return any(v).(T), nil
	case int:
		parsed, err = strconv.Atoi(v)
	case int64:
		parsed, err = strconv.ParseInt(v, 10, 64)
	case uint64:
		parsed, err = strconv.ParseUint(v, 10, 64)
	case float64:
		parsed, err = strconv.ParseFloat(v, 64)
	case bool:
		parsed, err = strconv.ParseBool(v)
	default:
		return defaultValue, fmt.Errorf("unsupported type for env var %s: %T", key, defaultValue)
	}

	if err != nil {
		return defaultValue, fmt.Errorf("failed to parse env %s as %T: %w", key, defaultValue, err)
	}
	return parsed.(T), nil
}
