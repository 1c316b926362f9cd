package providers

import (
	_ "github.com/coe-labs/coe-agent/src/ai/ax"
	_ "github.com/coe-labs/coe-agent/src/ai/gpt4o"
)
