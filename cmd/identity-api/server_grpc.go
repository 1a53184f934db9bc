package main

import (
	"net"

	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	config "github.com/NordCoder/Warden/internal/config/identity-api"
	"github.com/NordCoder/Warden/internal/obs"
	"github.com/NordCoder/Warden/internal/services/identity-api/api"
)

func buildGRPCServer(cfg *config.Config, app *application) (*grpc.Server, net.Listener, error) {
	opts := obs.GRPCServerOpts()
	opts = append(opts,
		grpc.ChainUnaryInterceptor(
			grpcprometheus.UnaryServerInterceptor,
			app.server.UnaryRecoveryInterceptor(),
			app.server.UnaryAuthInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			grpcprometheus.StreamServerInterceptor,
		),
	)

	grpcServer := grpc.NewServer(opts...)
	api.RegisterSessionServiceServer(grpcServer, app.server)
	grpcprometheus.EnableHandlingTimeHistogram()
	grpcprometheus.Register(grpcServer)
	reflection.Register(grpcServer)

	ln, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return nil, nil, err
	}
	return grpcServer, ln, nil
}
