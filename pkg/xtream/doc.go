// Package xtream provides a client for the live stream listings of the
// Xtream Codes API.
//
// Xtream Codes is an IPTV panel system. Only the two calls needed to build a
// live playlist are implemented:
//
//	{baseURL}/player_api.php?username={user}&password={pass}&action=get_live_categories
//	{baseURL}/player_api.php?username={user}&password={pass}&action=get_live_streams
//
// Panels are inconsistent about JSON types, so ids and names decode into
// Field, which accepts strings, numbers and booleans alike and tracks whether
// the key was present.
//
// # Basic Usage
//
//	client := xtream.NewClient(httpclient.NewWithDefaults(), "example.com:8080", "username", "password")
//
//	categories, err := client.GetLiveCategories(ctx)
//	streams, malformed, err := client.GetLiveStreams(ctx)
//
//	// {baseURL}/live/{user}/{pass}/{streamID}.{ext}
//	url := client.LiveStreamURL(streams[0].StreamID.Text, "ts")
package xtream
