/*
Package reqtokensdk is a small client for the request token service.

# Overview

The admin API issues, inspects and expires request tokens. It is protected by
a static bearer credential (ADMIN_TOKEN on the server):

	client := reqtokensdk.NewSDKClient("https://links.example.com").
		WithAdminToken(os.Getenv("ADMIN_TOKEN"))

	created, err := client.CreateToken(ctx, reqtokensdk.CreateTokenRequest{
		Scope:     "consume",
		UserID:    "user-42",
		LoginMode: "REQUEST",
		MaxUses:   1,
		URL:       "https://links.example.com/v1/consume",
	})

	// created.URL carries the signed token in the rt query argument.

	state, err := client.GetToken(ctx, created.ID)
	logs, err := client.ListUsageLogs(ctx, created.ID)
	_, err = client.ExpireToken(ctx, created.ID)

# Consuming tokens

The demo endpoints accept a token in the query string:

	who, err := client.WhoAmI(ctx, created.Token)
	data, err := client.Consume(ctx, created.Token)

A rejected token comes back as an *APIError with StatusCode 403. The
description carries the support code from the denial page.

# Health

	health, err := client.GetLiveness(ctx)
	health, err = client.GetReadiness(ctx)
*/
package reqtokensdk
