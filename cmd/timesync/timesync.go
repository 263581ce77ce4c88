package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogf/gf/v2/os/gproc"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// A rig whose OSC timestamps drift from the receiver's clock is worse
// than useless, so the node hosts this small sidecar that keeps the
// board disciplined against the show clock via ntpdate.

var syncFailures = 0
var syncOK = false
var lastSyncTime = time.Date(0, 0, 0, 0, 0, 0, 0, time.UTC)

const maxSyncRetry = 3
const syncRetryIntervalS = 5
const syncReTriggerIntervalMin = 300
const ntpdateCmd = "ntpdate"

var managedBlock = regexp.MustCompile(`# MANAGED BY CODECELL\r?\nserver\s([^\s]*)\siburst\r?\n# MANAGED BY CODECELL`)

type ntpdConf struct {
	Server string `json:"server"`
}

var lock = &sync.Mutex{}

func execNTPUpdate(hostname string) (string, error) {
	lock.Lock()
	defer lock.Unlock()
	return gproc.ShellExec(context.Background(), ntpdateCmd+" "+hostname)
}

func setup(serverAddress string) {
	for i := 0; i < maxSyncRetry; i++ {
		output, err := execNTPUpdate(serverAddress)
		if err == nil {
			syncOK = true
			lastSyncTime = time.Now()
			return
		}
		syncFailures++
		log.Info("sync trial " + strconv.Itoa(syncFailures) + " to " + serverAddress + " failed: " + output + ". Wait 5 seconds")
		time.Sleep(syncRetryIntervalS * time.Second)
	}
	syncOK = false
	lastSyncTime = time.Date(0, 0, 0, 0, 0, 0, 0, time.UTC)
}

func readNTPServerFromConfig(ntpdConfPath string) (string, error) {
	bytes, err := os.ReadFile(ntpdConfPath)
	if err != nil {
		return "", err
	}
	matches := managedBlock.FindStringSubmatch(string(bytes))
	if len(matches) < 2 {
		return "", fmt.Errorf("no managed server address found in ntp.conf")
	}
	return matches[1], nil
}

func writeNTPServerToConfig(ntpdConfPath string, server string) error {
	bytes, err := os.ReadFile(ntpdConfPath)
	if err != nil {
		return err
	}
	block := "# MANAGED BY CODECELL\nserver " + server + " iburst\n# MANAGED BY CODECELL"
	var newStr string
	if managedBlock.MatchString(string(bytes)) {
		newStr = managedBlock.ReplaceAllString(string(bytes), block)
	} else {
		newStr = string(bytes) + "\n" + block
	}
	return os.WriteFile(ntpdConfPath, []byte(newStr), 0644)
}

func _main(cmd *cobra.Command) (err error) {
	serverHostname, err := cmd.Flags().GetString("server")
	listenPort, err := cmd.Flags().GetInt("port")
	ntpdConfPath, err := cmd.Flags().GetString("ntpd_config_path")
	log.Info("NTP server:", serverHostname)
	log.Info("NTPD config path:", ntpdConfPath)

	go func() {
		for {
			setup(serverHostname)
			time.Sleep(syncReTriggerIntervalMin * time.Minute)
		}
	}()

	router := gin.Default()

	router.GET("/time-sync", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"failures":     syncFailures,
			"synchronized": syncOK,
			"lastSyncTS":   lastSyncTime.Unix(),
		})
	})

	router.POST("/time-sync", func(c *gin.Context) {
		output, err := execNTPUpdate(serverHostname)
		if err != nil {
			syncFailures++
			c.JSON(http.StatusInternalServerError, gin.H{
				"err": err.Error(),
				"msg": "Synchronization failed: " + output,
			})
			return
		}
		lastSyncTime = time.Now()
		syncOK = true
		c.JSON(http.StatusOK, gin.H{
			"err": nil,
			"msg": "Synchronization success",
		})
	})

	router.GET("/ntpd-config", func(c *gin.Context) {
		addr, err := readNTPServerFromConfig(ntpdConfPath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"err":  err.Error(),
				"addr": nil,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"err":  nil,
			"addr": addr,
		})
	})

	router.PUT("/ntpd-config", func(c *gin.Context) {
		req := ntpdConf{}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"err": err.Error(),
			})
			return
		}
		serverHostname = req.Server
		if err := writeNTPServerToConfig(ntpdConfPath, serverHostname); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"err": err.Error(),
			})
			return
		}
		if _, err := gproc.ShellExec(context.Background(), "systemctl restart ntpd"); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"err": err.Error(),
				"msg": "The NTP server address now is set as: " + serverHostname,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"err": nil,
			"msg": "The NTP server address now is set as: " + serverHostname,
		})
	})

	err = router.Run(":" + strconv.Itoa(listenPort))

	return err
}

var rootCmd = &cobra.Command{
	Use:   "timesync",
	Short: "ntp synchronizer between the rig and the receiver host",
	Long:  "This program keeps the rig's clock disciplined against the OSC receiver's clock as a daemon service",
	Run: func(cmd *cobra.Command, args []string) {
		if err := _main(cmd); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func main() {
	rootCmd.Flags().String("server", "pool.ntp.org", "NTP server's Hostname")
	rootCmd.Flags().Int("port", 8080, "Port number")
	rootCmd.Flags().String("ntpd_config_path", "/etc/ntpsec/ntp.conf", "NTPD's config path")
	rootCmd.Flags().Bool("debug", false, "toggle debug logging")
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}
