package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type providerStat struct {
	fetches int64
	errors  int64
}

type componentStat struct {
	warns  int64
	errors int64
}

var (
	analysesTotal int64
	cacheHits     int64
	cacheMisses   int64
	providerStats sync.Map // map[string]*providerStat
	componentLogs sync.Map // map[string]*componentStat
)

func recordWarn(component string) {
	v, _ := componentLogs.LoadOrStore(component, &componentStat{})
	atomic.AddInt64(&v.(*componentStat).warns, 1)
}

func recordError(component string) {
	v, _ := componentLogs.LoadOrStore(component, &componentStat{})
	atomic.AddInt64(&v.(*componentStat).errors, 1)
}

// IncrementAnalysis counts one completed token analysis.
func IncrementAnalysis() {
	atomic.AddInt64(&analysesTotal, 1)
}

// RecordProviderFetch counts one provider call, successful or not.
func RecordProviderFetch(provider string, ok bool) {
	v, _ := providerStats.LoadOrStore(provider, &providerStat{})
	ps := v.(*providerStat)
	atomic.AddInt64(&ps.fetches, 1)
	if !ok {
		atomic.AddInt64(&ps.errors, 1)
	}
}

// RecordCacheHit counts a lookup served without a fetch.
func RecordCacheHit() {
	atomic.AddInt64(&cacheHits, 1)
}

// RecordCacheMiss counts a lookup that triggered a load.
func RecordCacheMiss() {
	atomic.AddInt64(&cacheMisses, 1)
}

// StartReport begins periodic logging of system and counter statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	netStats, _ := gnet.IOCounters(false)

	providerData := map[string]map[string]int64{}
	providerStats.Range(func(k, v any) bool {
		ps := v.(*providerStat)
		providerData[k.(string)] = map[string]int64{
			"fetches": atomic.LoadInt64(&ps.fetches),
			"errors":  atomic.LoadInt64(&ps.errors),
		}
		return true
	})

	componentData := map[string]map[string]int64{}
	componentLogs.Range(func(k, v any) bool {
		cs := v.(*componentStat)
		componentData[k.(string)] = map[string]int64{
			"warns":  atomic.LoadInt64(&cs.warns),
			"errors": atomic.LoadInt64(&cs.errors),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	analyses := atomic.LoadInt64(&analysesTotal)
	hits := atomic.LoadInt64(&cacheHits)
	misses := atomic.LoadInt64(&cacheMisses)

	fields := Fields{
		"analyses":       analyses,
		"cache_hits":     hits,
		"cache_misses":   misses,
		"providers":      providerData,
		"components":     componentData,
		"goroutines":     runtime.NumGoroutine(),
		"cpu_percent":    cpuPct,
		"memory_mb":      int64(memStats.Used) / 1024 / 1024,
		"disk_mb":        int64(diskStats.Used) / 1024 / 1024,
		"net_bytes_sent": int64(bytesSent),
		"net_bytes_recv": int64(bytesRecv),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("Analyses"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(analyses))},
		cwtypes.MetricDatum{MetricName: aws.String("CacheHits"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(hits))},
		cwtypes.MetricDatum{MetricName: aws.String("CacheMisses"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(misses))},
		cwtypes.MetricDatum{MetricName: aws.String("NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		cwtypes.MetricDatum{MetricName: aws.String("NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	)

	for name, stats := range providerData {
		dims := []cwtypes.Dimension{{Name: aws.String("Provider"), Value: aws.String(name)}}
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("ProviderFetches"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
				Value:      aws.Float64(float64(stats["fetches"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("ProviderErrors"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
				Value:      aws.Float64(float64(stats["errors"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
