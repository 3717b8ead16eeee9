package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const samplePrometheusBody = `# HELP DCGM_FI_DEV_FB_USED Framebuffer used
# TYPE DCGM_FI_DEV_FB_USED gauge
DCGM_FI_DEV_FB_USED{gpu="0",modelName="RTX 5090"} 1048576
DCGM_FI_DEV_FB_FREE{gpu="0",modelName="RTX 5090"} 2097152
DCGM_FI_DEV_GPU_UTIL{gpu="0",modelName="RTX 5090"} 42
DCGM_FI_DEV_GPU_TEMP{gpu="0",modelName="RTX 5090"} 65
DCGM_FI_DEV_POWER_USAGE{gpu="0",modelName="RTX 5090"} 320.5
`

func TestParseMetric(t *testing.T) {
	samples := parseMetric(samplePrometheusBody, "DCGM_FI_DEV_GPU_UTIL")
	assert.Len(t, samples, 1)
	assert.Equal(t, "0", samples[0]["gpu"])
	v, ok := scanValue(samples[0])
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)
}

func TestFormat_VRAMLine(t *testing.T) {
	r := Report{
		Status: "healthy",
		GPUs: []GPU{
			{ID: "0", UsedGB: 1.0, TotalGB: 3.0, UtilPct: 42, TempC: 65, PowerW: 320},
		},
		MemoryCount: 7,
	}
	out := Format(r)
	assert.Contains(t, out, "**System Status: HEALTHY**")
	assert.Contains(t, out, "**VRAM:** 1.0GB / 3.0GB (33.3% utilized)")
	assert.Contains(t, out, "**GPUs:** 1 active")
	assert.Contains(t, out, "GPU 0: 1.0GB / 3.0GB | 65°C | 320W")
	assert.Contains(t, out, "**Memories:** 7 stored in Mem0")
	assert.Contains(t, out, "All systems operational.")
}

func TestFormat_MultiGPU(t *testing.T) {
	r := Report{
		Status: "degraded",
		GPUs: []GPU{
			{ID: "0", UsedGB: 1.0, TotalGB: 4.0, TempC: 60, PowerW: 250},
			{ID: "1", UsedGB: 3.0, TotalGB: 4.0, TempC: 70, PowerW: 350},
		},
		MemoryCount: 3,
	}
	out := Format(r)
	assert.Contains(t, out, "**VRAM:** 4.0GB / 8.0GB (50.0% utilized)")
	assert.Contains(t, out, "**GPUs:** 2 active")
	assert.Contains(t, out, "GPU 0: 1.0GB / 4.0GB | 60°C | 250W")
	assert.Contains(t, out, "GPU 1: 3.0GB / 4.0GB | 70°C | 350W")
	assert.Contains(t, out, "Some systems degraded - check logs.")
}

func TestFormat_NoGPUs(t *testing.T) {
	out := Format(Report{Status: "degraded"})
	assert.Contains(t, out, "**VRAM:** unavailable")
	assert.Contains(t, out, "**GPUs:** 0 active")
}
