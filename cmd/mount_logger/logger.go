// Command mount_logger records the mount status feed into InfluxDB for
// later analysis of tracking runs.
package main

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"time"

	"github.com/gorilla/websocket"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
)

func main() {
	server := os.Getenv("INFLUX_SERVER")
	if server == "" {
		server = "http://localhost:9999"
	}
	client := influxdb2.NewClient(server, os.Getenv("INFLUX_TOKEN"))
	defer client.Close()
	// Non-blocking write client.
	writeApi := client.WriteApi("eyesky", "mount.raw")
	defer writeApi.Close()
	errorsCh := writeApi.Errors()
	go func() {
		for err := range errorsCh {
			log.Printf("write error: %v", err)
		}
	}()
	var last map[string]interface{}
	for {
		if err := logData(writeApi, &last); err != nil {
			log.Print(err)
		}
		time.Sleep(1 * time.Second)
	}
}

// flattenStatus turns the nested status document into dotted field
// names, one value per field.
func flattenStatus(fields map[string]interface{}, status interface{}, prefix string) {
	switch status := status.(type) {
	case map[string]interface{}:
		for k, v := range status {
			flattenStatus(fields, v, prefix+"."+k)
		}
	case []interface{}:
		for k, v := range status {
			flattenStatus(fields, v, fmt.Sprintf("%s.%d", prefix, k))
		}
	default:
		fields[prefix[1:]] = status
	}
}

// stateTag condenses the status booleans into a single operating state
// for queries that group tracking runs.
func stateTag(fields map[string]interface{}) string {
	b := func(k string) bool {
		v, _ := fields[k].(bool)
		return v
	}
	switch {
	case b("Mount.EmergencyStopped"):
		return "stopped"
	case !b("Mount.Ready"):
		return "homing"
	case b("Mount.Holding"):
		return "holding"
	case b("Mount.Moving"):
		return "slewing"
	default:
		return "tracking"
	}
}

// logData streams one websocket connection into InfluxDB. last spans
// reconnects so the snapshot resent on reconnect is not logged twice.
func logData(writeApi api.WriteApi, last *map[string]interface{}) error {
	url := os.Getenv("MOUNT_ADDRESS")
	if url == "" {
		url = "ws://localhost:8502/api/ws"
	}
	defer writeApi.Flush()
	var dialer websocket.Dialer
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	for {
		var status interface{}
		if err := conn.ReadJSON(&status); err != nil {
			return err
		}
		fields := make(map[string]interface{})
		flattenStatus(fields, status, "")
		if reflect.DeepEqual(fields, *last) {
			continue
		}
		*last = fields

		p := influxdb2.NewPoint("mount.status",
			map[string]string{"state": stateTag(fields)},
			fields,
			time.Now(),
		)
		writeApi.WritePoint(p)
	}
}
