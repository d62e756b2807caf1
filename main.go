package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"path"
	"time"

	"github.com/MrSpock/tftp-server/client"
	"github.com/MrSpock/tftp-server/config"
	"github.com/MrSpock/tftp-server/server"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	host            = kingpin.Arg("host", "The host to request from (hostname or IPv4 address). In server mode, the address to listen on.").ResolvedIP()
	serverMode      = kingpin.Flag("server", "Server mode: accept incoming requests from any host. Operate in client mode if “-s” is not specified.").Short('s').Default("false").Bool()
	port            = kingpin.Flag("port", "Specify the port number to use (use the well-known TFTP port 69 as default if not given).").Default("69").Short('t').Int()
	markovP         = kingpin.Flag("p", "Specify the loss probabilities for the Markov chain model.").Short('p').Default("0").Float64()
	markovQ         = kingpin.Flag("q", "Specify the loss probabilities for the Markov chain model.").Short('q').Default("0").Float64()
	fileDir         = kingpin.Flag("file-dir", "Server: Specify the directory containing the files that the server should serve. Client: Specify the directory where fetched files will be saved.").Short('d').Default("./").ExistingDir()
	timeoutMS       = kingpin.Flag("timeout", "Per-packet receive timeout in milliseconds.").Default("3000").Int()
	retransmissions = kingpin.Flag("retransmissions", "How often a packet is sent again before a transfer is given up.").Default("5").Int()
	configFile      = kingpin.Flag("config", "Optional TOML configuration file. Its values take precedence over the corresponding flags.").Short('c').String()
	put             = kingpin.Flag("put", "Client mode: upload the given files instead of fetching them.").Bool()
	files           = kingpin.Arg("files", "The name of the file(s) to transfer.").Default("").Strings()
)

func main() {
	kingpin.Parse()

	if *configFile != "" {
		cfg, err := config.Initialize(*configFile)
		if err != nil {
			fmt.Printf("error: could not read config file: %v\n", err)
			os.Exit(1)
		}
		ip := net.ParseIP(cfg.Server.Host)
		if ip == nil {
			fmt.Printf("error: invalid host in config file: %q\n", cfg.Server.Host)
			os.Exit(1)
		}
		*host = ip
		*port = cfg.Server.Port
		*fileDir = cfg.Server.RootDir
		*timeoutMS = cfg.Server.TimeoutMS
		*retransmissions = cfg.Server.Retransmissions
		*markovP = cfg.Loss.P
		*markovQ = cfg.Loss.Q
	}

	// check that p and q are valid
	if *markovP > 1 || *markovP < 0 || *markovQ > 1 || *markovQ < 0 {
		fmt.Println("error: p and/or q values for the markov chain are invalid")
		os.Exit(1)
	}
	if *host == nil {
		fmt.Println("error: When running in client mode, a server IP/hostname must be provided! When running in server mode a host ip must be provided!")
		os.Exit(1)
	}

	timeout := time.Duration(*timeoutMS) * time.Millisecond

	if *serverMode { /* server mode */
		log.Println("Starting server")

		s, err := server.Init(*host, *port, *fileDir, timeout, *retransmissions, *markovP, *markovQ)
		if err != nil {
			log.Panicf(`Error creating server: %v`, err)
		}
		defer s.Conn.Close()

		close := make(chan bool)
		if err := s.Listen(close); err != nil {
			log.Panicf(`Error while listening: %v`, err)
		}

	} else { /* client mode */
		if len(*files) < 1 {
			fmt.Println("error: When running in client mode, at least one file name must be provided!")
			os.Exit(1)
		}

		clientConfig := client.DefaultConfig
		clientConfig.Timeout = timeout
		clientConfig.Retransmissions = *retransmissions
		clientConfig.MarkovP = *markovP
		clientConfig.MarkovQ = *markovQ

		// Transfer files sequentially
		for _, file := range *files {
			localFileName := path.Join(*fileDir, path.Base(file))
			var err error
			if *put {
				err = client.PutFile(*host, *port, localFileName, file, &clientConfig)
			} else {
				err = client.FetchFile(*host, *port, file, localFileName, &clientConfig)
			}
			if err != nil {
				fmt.Printf("File transfer for %q failed: %v\n", file, err)
			}
		}
	}
}
