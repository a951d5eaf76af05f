package cache

import "fmt"

const (
	testKeyPrefix  = "proctor:test:"
	TestKeyPattern = testKeyPrefix + "*"
)

func TestKey(testID string) string {
	return fmt.Sprintf("%s%s", testKeyPrefix, testID)
}
