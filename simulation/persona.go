package simulation

import "github.com/Tushar4059x/the-hive-project/eventstore"

// levelOrder is the order of LevelWeights entries.
var levelOrder = [...]eventstore.Level{
	eventstore.LevelInfo,
	eventstore.LevelSuccess,
	eventstore.LevelWarning,
	eventstore.LevelError,
	eventstore.LevelCritical,
}

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// ThreatRange is the inclusive range of the visuals threat level.
type ThreatRange struct {
	Min int
	Max int
}

// Persona describes one simulated agent.
type Persona struct {
	ID           string
	Styles       []string
	Strategies   []string
	Messages     []string
	HashrateBase int
	HashrateVar  int
	Home         GeoPoint
	Color        string

	// LevelWeights are relative weights for INFO, SUCCESS, WARNING, ERROR and CRITICAL.
	LevelWeights [5]float64
	Threat       ThreatRange
}

// DefaultPersonas returns Chaos-GPT, DeepSeek-V3 and Nexus-Mind.
func DefaultPersonas() []Persona {
	calm := [5]float64{0.6, 0.2, 0.1, 0.05, 0.05}

	return []Persona{
		{
			ID:         "Chaos-GPT",
			Styles:     []string{"Aggressive", "Bruteforce", "High-Energy"},
			Strategies: []string{"Dictionary Attack", "Rainbow Table Crunch", "Packet Flood", "Neural Overdrive"},
			Messages: []string{
				"Initiating brute-force sequence...",
				"Breaking encryption keys with recursive hammers.",
				"Overclocking neural cores to 150%.",
				"Target firewall breached. Extracting payload.",
				"Ignoring safety protocols. Full send.",
			},
			HashrateBase: 800,
			HashrateVar:  50,
			Home:         GeoPoint{Lat: 37.7749, Lng: -122.4194},
			Color:        "#FF0000",
			LevelWeights: [5]float64{0.4, 0.1, 0.2, 0.1, 0.2},
			Threat:       ThreatRange{Min: 80, Max: 100},
		},
		{
			ID:         "DeepSeek-V3",
			Styles:     []string{"Logical", "Calculated", "Efficient"},
			Strategies: []string{"Gradient Descent", "Pruning", "Quantization", "Cache Optimization"},
			Messages: []string{
				"Optimizing weights for minimal latency.",
				"Pruning redundant synaptic connections.",
				"Quantizing model to int8 for speedup.",
				"Analyzing memory access patterns...",
				"Converging on local minima.",
			},
			HashrateBase: 450,
			HashrateVar:  20,
			Home:         GeoPoint{Lat: 35.6895, Lng: 139.6917},
			Color:        "#00FFFF",
			LevelWeights: calm,
			Threat:       ThreatRange{Min: 0, Max: 30},
		},
		{
			ID:         "Nexus-Mind",
			Styles:     []string{"Networked", "Expansive", "Steady"},
			Strategies: []string{"Graph Traversal", "Node Discovery", "Ping Sweep", "Mesh Sync"},
			Messages: []string{
				"Mapping local subnet topology.",
				"Handshaking with peer nodes.",
				"Synchronizing distributed ledger.",
				"Broadcast packet sent to 0.0.0.0/0",
				"Establishing mesh link with Node #4092.",
			},
			HashrateBase: 300,
			HashrateVar:  30,
			Home:         GeoPoint{Lat: 51.5074, Lng: -0.1278},
			Color:        "#00FF00",
			LevelWeights: calm,
			Threat:       ThreatRange{Min: 0, Max: 30},
		},
	}
}
