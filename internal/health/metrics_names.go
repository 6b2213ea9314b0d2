package health

import "runtime"

// MetricNames maps report fields onto exporter metric and label names
type MetricNames struct {
	Exporter        string
	CPUTime         string // counter, labelled by core and mode
	CPULabel        string
	CPUIdleLabel    string
	MemoryTotal     string
	MemoryAvailable string
	MemoryCached    string
	DiskFreeBytes   string
	DiskSizeBytes   string
	VolumeLabel     string
	NetRecvBytes    string
	NetSentBytes    string
	NetRecvPackets  string
	NetSentPackets  string
	DeviceLabel     string
	Loopback        string
	HostInfo        string // info metric carrying the host name as a label
	HostnameLabel   string
}

// GetMetricNames returns the metric names of the exporter for this OS
func GetMetricNames() MetricNames {
	return MetricNamesFor(runtime.GOOS)
}

// MetricNamesFor returns windows_exporter names on Windows and
// node_exporter names everywhere else
func MetricNamesFor(goos string) MetricNames {
	if goos == "windows" {
		return MetricNames{
			Exporter:        "windows_exporter",
			CPUTime:         "windows_cpu_time_total",
			CPULabel:        "core",
			CPUIdleLabel:    "idle",
			MemoryTotal:     "windows_cs_physical_memory_bytes",
			MemoryAvailable: "windows_memory_available_bytes",
			MemoryCached:    "windows_memory_cache_bytes",
			DiskFreeBytes:   "windows_logical_disk_free_bytes",
			DiskSizeBytes:   "windows_logical_disk_size_bytes",
			VolumeLabel:     "volume",
			NetRecvBytes:    "windows_net_bytes_received_total",
			NetSentBytes:    "windows_net_bytes_sent_total",
			NetRecvPackets:  "windows_net_packets_received_total",
			NetSentPackets:  "windows_net_packets_sent_total",
			DeviceLabel:     "nic",
			Loopback:        "",
			HostInfo:        "windows_cs_hostname",
			HostnameLabel:   "hostname",
		}
	}

	return MetricNames{
		Exporter:        "node_exporter",
		CPUTime:         "node_cpu_seconds_total",
		CPULabel:        "cpu",
		CPUIdleLabel:    "idle",
		MemoryTotal:     "node_memory_MemTotal_bytes",
		MemoryAvailable: "node_memory_MemAvailable_bytes",
		MemoryCached:    "node_memory_Cached_bytes",
		DiskFreeBytes:   "node_filesystem_avail_bytes",
		DiskSizeBytes:   "node_filesystem_size_bytes",
		VolumeLabel:     "mountpoint",
		NetRecvBytes:    "node_network_receive_bytes_total",
		NetSentBytes:    "node_network_transmit_bytes_total",
		NetRecvPackets:  "node_network_receive_packets_total",
		NetSentPackets:  "node_network_transmit_packets_total",
		DeviceLabel:     "device",
		Loopback:        "lo",
		HostInfo:        "node_uname_info",
		HostnameLabel:   "nodename",
	}
}
